package unarc

import (
	"path"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
)

// entryNormalizer 条目归一化器
// 把引擎特定的原始条目转换为统一的条目模型：
// 正斜杠分隔、无前导斜杠、无盘符、路径唯一、目录不携带数据。
// 含路径遍历（".."段）的条目属于安全违规，记录日志后丢弃
type entryNormalizer struct {
	logger *log.Logger
}

// newEntryNormalizer 创建条目归一化器
func newEntryNormalizer(logger *log.Logger) *entryNormalizer {
	return &entryNormalizer{logger: logger}
}

// Normalize 归一化引擎报告的原始条目
// 确定性且保持引擎报告的顺序；对同一输入幂等
func (n *entryNormalizer) Normalize(raw []rawEntry) []Entry {
	entries := make([]Entry, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, re := range raw {
		cleaned, ok := n.cleanPath(re.path)
		if !ok {
			n.logger.Warn("丢弃不安全的条目路径", "path", re.path)
			continue
		}

		if seen[cleaned] {
			n.logger.Warn("丢弃重复的条目路径", "path", cleaned)
			continue
		}
		seen[cleaned] = true

		entry := Entry{
			Path:    cleaned,
			IsDir:   re.isDir,
			Size:    re.size,
			ModTime: re.modTime,
		}
		// 目录条目从不携带数据，但必须保留：部分调用方需要渲染空目录
		if !re.isDir {
			entry.Data = re.data
			if entry.Size == 0 {
				entry.Size = int64(len(re.data))
			}
		}

		entries = append(entries, entry)
	}

	return entries
}

// cleanPath 清理单个条目路径
// 返回false表示该条目必须丢弃（路径遍历或空路径）
func (n *entryNormalizer) cleanPath(p string) (string, bool) {
	// 统一为正斜杠（TAR/ZIP可能携带Windows风格分隔符）
	p = strings.ReplaceAll(p, "\\", "/")

	// 移除控制字符
	p = removeControlCharacters(p)

	// 移除盘符（"C:/..."）
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		p = p[2:]
	}

	// 目录条目常以斜杠结尾，统一去掉
	p = strings.TrimSuffix(p, "/")

	p = path.Clean(p)

	// 移除前导斜杠
	p = strings.TrimPrefix(p, "/")

	if p == "" || p == "." {
		return "", false
	}

	// path.Clean后残留的".."只会出现在开头，但逐段检查防御编码绕过
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", false
		}
	}

	return p, true
}

// removeControlCharacters 移除控制字符
func removeControlCharacters(p string) string {
	var result strings.Builder
	for _, char := range p {
		if !unicode.IsControl(char) {
			result.WriteRune(char)
		}
	}
	return result.String()
}

// isASCIILetter 判断是否为ASCII字母
func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
