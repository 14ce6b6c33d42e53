package unarc

import "sync/atomic"

// progressReporter 单调进度报告器 (内部使用)
// 保证回调收到的百分比在[0,100]内且单调不减；回调为nil时所有操作为空操作
type progressReporter struct {
	callback ProgressCallback
	last     int
	disarmed atomic.Bool
}

// newProgressReporter 创建进度报告器
func newProgressReporter(callback ProgressCallback) *progressReporter {
	return &progressReporter{callback: callback, last: -1}
}

// report 报告进度百分比
func (r *progressReporter) report(percent int) {
	if r == nil || r.callback == nil || r.disarmed.Load() {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= r.last {
		return
	}
	r.last = percent
	r.callback(percent)
}

// disarm 永久停用报告器
// 取消后被放弃的引擎尝试仍可能在途，停用保证调用方在返回后不再收到回调
func (r *progressReporter) disarm() {
	if r == nil {
		return
	}
	r.disarmed.Store(true)
}

// reportRange 报告区间内按完成比例折算的进度
// 引擎在遍历条目时用它上报增量进度
func (r *progressReporter) reportRange(from, to, done, total int) {
	if r == nil || r.callback == nil || total <= 0 {
		return
	}
	r.report(from + (to-from)*done/total)
}
