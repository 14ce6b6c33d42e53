package unarc

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *entryNormalizer {
	return newEntryNormalizer(log.New(io.Discard))
}

func TestNormalizePathSeparators(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Normalize([]rawEntry{
		{path: `dir\sub\file.txt`, data: []byte("a")},
		{path: "/rooted/file.bin", data: []byte("b")},
		{path: "plain.txt", data: []byte("c")},
	})

	require.Len(t, entries, 3)
	require.Equal(t, "dir/sub/file.txt", entries[0].Path)
	require.Equal(t, "rooted/file.bin", entries[1].Path)
	require.Equal(t, "plain.txt", entries[2].Path)
}

func TestNormalizeDriveLetters(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Normalize([]rawEntry{
		{path: `C:\evil\file.txt`, data: []byte("x")},
	})

	require.Len(t, entries, 1)
	require.Equal(t, "evil/file.txt", entries[0].Path)
}

// 路径遍历条目是安全违规，必须丢弃而不能出现在结果里
func TestNormalizeRejectsTraversal(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Normalize([]rawEntry{
		{path: "../../etc/passwd", data: []byte("pwned")},
		{path: "ok/../../../etc/shadow", data: []byte("pwned")},
		{path: "safe.txt", data: []byte("fine")},
		{path: "..", isDir: true},
	})

	require.Len(t, entries, 1)
	require.Equal(t, "safe.txt", entries[0].Path)
}

func TestNormalizeUniquePaths(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Normalize([]rawEntry{
		{path: "dup.txt", data: []byte("first")},
		{path: "dup.txt", data: []byte("second")},
		{path: "dir/", isDir: true},
		{path: "dir", isDir: true},
	})

	require.Len(t, entries, 2)
	require.Equal(t, "dup.txt", entries[0].Path)
	require.Equal(t, []byte("first"), entries[0].Data)
	require.Equal(t, "dir", entries[1].Path)
}

// 空目录不能被静默丢弃，调用方需要渲染它们
func TestNormalizeKeepsEmptyDirectories(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Normalize([]rawEntry{
		{path: "empty/", isDir: true, data: []byte("should be stripped")},
	})

	require.Len(t, entries, 1)
	require.True(t, entries[0].IsDir)
	require.Nil(t, entries[0].Data)
}

func TestNormalizeDeterministic(t *testing.T) {
	n := newTestNormalizer()
	raw := []rawEntry{
		{path: `a\b.txt`, data: []byte("1"), modTime: time.Unix(100, 0)},
		{path: "/c.txt", data: []byte("2")},
		{path: "d/", isDir: true},
		{path: "../bad", data: []byte("3")},
	}

	first := n.Normalize(raw)
	second := n.Normalize(raw)
	require.Equal(t, first, second)
}

func TestNormalizeSizeFallback(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Normalize([]rawEntry{
		{path: "f.txt", data: []byte("12345")},
	})

	require.Len(t, entries, 1)
	require.Equal(t, int64(5), entries[0].Size)
}
