package unarc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressReporterMonotonic(t *testing.T) {
	var reports []int
	r := newProgressReporter(func(percent int) {
		reports = append(reports, percent)
	})

	r.report(0)
	r.report(30)
	r.report(20) // 回退被吞掉
	r.report(30) // 重复被吞掉
	r.report(150)

	require.Equal(t, []int{0, 30, 100}, reports)
}

func TestProgressReporterRange(t *testing.T) {
	var reports []int
	r := newProgressReporter(func(percent int) {
		reports = append(reports, percent)
	})

	r.reportRange(30, 90, 1, 4)
	r.reportRange(30, 90, 2, 4)
	r.reportRange(30, 90, 4, 4)
	r.reportRange(30, 90, 1, 0) // total为0时忽略

	require.Equal(t, []int{45, 60, 90}, reports)
}

func TestProgressReporterNilCallback(t *testing.T) {
	r := newProgressReporter(nil)
	r.report(50) // 不应panic
	r.reportRange(0, 100, 1, 2)
}
