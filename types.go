package unarc

import (
	"errors"
	"fmt"
	"time"
)

// FormatTag 压缩格式标签
type FormatTag string

const (
	FormatZIP     FormatTag = "zip"
	Format7Z      FormatTag = "7z"
	FormatRAR     FormatTag = "rar"
	FormatTAR     FormatTag = "tar"
	FormatGZIP    FormatTag = "gz"
	FormatBZIP2   FormatTag = "bz2"
	FormatXZ      FormatTag = "xz"
	FormatLZMA    FormatTag = "lzma"
	FormatZSTD    FormatTag = "zst"
	FormatLZ4     FormatTag = "lz4"
	FormatISO     FormatTag = "iso"
	FormatCAB     FormatTag = "cab"
	FormatAR      FormatTag = "ar"
	FormatCPIO    FormatTag = "cpio"
	FormatUnknown FormatTag = "unknown"
)

// String 返回格式字符串
func (f FormatTag) String() string {
	return string(f)
}

// IsCompressionWrapper 判断是否为单流压缩包装格式（无条目结构）
func (f FormatTag) IsCompressionWrapper() bool {
	switch f {
	case FormatGZIP, FormatBZIP2, FormatXZ, FormatLZMA, FormatZSTD, FormatLZ4:
		return true
	}
	return false
}

// DetectedFormat 格式检测结果
// 当格式为包装格式且内部包裹TAR容器时（常见的tarball情况），WrapsTar为true
type DetectedFormat struct {
	Tag      FormatTag
	WrapsTar bool
}

// String 返回检测结果字符串
func (d DetectedFormat) String() string {
	if d.WrapsTar {
		return "tar." + string(d.Tag)
	}
	return string(d.Tag)
}

// Entry 归一化后的条目
// Path始终使用正斜杠分隔、不以斜杠开头；目录条目不携带数据
type Entry struct {
	// Path 条目相对路径
	Path string

	// IsDir 是否为目录
	IsDir bool

	// Data 文件内容（目录为nil）
	Data []byte

	// Size 文件大小（字节）
	Size int64

	// ModTime 修改时间
	ModTime time.Time
}

// Result 解压结果
// 返回后完全归调用方所有，解压器不再持有引用
type Result struct {
	// Engine 实际使用的引擎名称（"general" 或 "specialist"）
	Engine string

	// Format 检测到的格式
	Format DetectedFormat

	// Entries 归一化后的条目列表（保持引擎报告的顺序）
	Entries []Entry
}

// Input 单次解压请求
type Input struct {
	// FileName 原始文件名（仅作为弱提示，不作为格式判断依据）
	FileName string

	// Data 压缩包原始字节
	Data []byte

	// Password 可选密码
	Password string

	// Progress 可选进度回调，百分比单调不减，成功时最后一次为100
	Progress ProgressCallback
}

// ProgressCallback 解压进度回调函数
// percent: 当前进度百分比 [0, 100]
type ProgressCallback func(percent int)

// ErrorType 错误类型枚举
type ErrorType string

const (
	// ErrUnsupportedFormat 不支持的格式（嗅探失败或无引擎声明支持）
	ErrUnsupportedFormat ErrorType = "UNSUPPORTED_FORMAT"

	// ErrPasswordRequired 需要密码（未提供可用密码，调用方可带密码重试）
	ErrPasswordRequired ErrorType = "PASSWORD_REQUIRED"

	// ErrWrongPassword 密码错误（提供的密码被拒绝，调用方可换密码重试）
	ErrWrongPassword ErrorType = "WRONG_PASSWORD"

	// ErrCorruptedArchive 压缩包损坏（格式已识别但结构无效，重试无效）
	ErrCorruptedArchive ErrorType = "CORRUPT"

	// ErrCancelled 调用方取消
	ErrCancelled ErrorType = "CANCELLED"

	// ErrInternalError 引擎内部错误（未分类，按不可恢复处理）
	ErrInternalError ErrorType = "UNKNOWN_ERROR"
)

// String 返回错误类型字符串
func (et ErrorType) String() string {
	return string(et)
}

// ExtractError 解压错误类型
type ExtractError struct {
	Type    ErrorType
	Message string
	Path    string
	Cause   error
}

// Error 实现error接口
func (e *ExtractError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Type, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap 返回原始错误
func (e *ExtractError) Unwrap() error {
	return e.Cause
}

// NewExtractError 创建解压错误 (内部使用)
func NewExtractError(errType ErrorType, message, path string, cause error) *ExtractError {
	return &ExtractError{
		Type:    errType,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// CodeOf 提取错误对应的机器可读类型
// 非ExtractError的错误统一归为UNKNOWN_ERROR
func CodeOf(err error) ErrorType {
	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.Type
	}
	return ErrInternalError
}

// IsPasswordRequired 判断错误是否为"需要密码"
func IsPasswordRequired(err error) bool {
	return CodeOf(err) == ErrPasswordRequired
}

// IsWrongPassword 判断错误是否为"密码错误"
func IsWrongPassword(err error) bool {
	return CodeOf(err) == ErrWrongPassword
}

// rawEntry 引擎报告的原始条目 (内部使用)
// 路径尚未归一化，可能包含反斜杠或前导斜杠
type rawEntry struct {
	path    string
	isDir   bool
	data    []byte
	size    int64
	modTime time.Time
}
