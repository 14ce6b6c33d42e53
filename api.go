package unarc

import (
	"context"

	"github.com/charmbracelet/log"
)

// Options 解压选项
type Options struct {
	// FileName 原始文件名提示（空则仅按内容处理）
	FileName string

	// Password 可选密码
	Password string

	// Progress 进度回调
	Progress ProgressCallback

	// Logger 结构化日志（nil则静默）
	Logger *log.Logger
}

// defaultCoordinator 包级默认协调器，无共享可变状态，可安全并发使用
var defaultCoordinator = NewCoordinator(nil)

// Extract 解压压缩包 - 主要入口点
//
// 参数:
//
//	data: 压缩包原始字节
//	options: 解压选项(可以为nil使用默认设置)
//
// 返回:
//
//	Result: 解压结果（使用的引擎 + 归一化条目列表）
//	error: 类型化的*ExtractError，用CodeOf判断失败原因
//
// 功能:
//   - 按字节内容自动检测格式(ZIP/7Z/RAR/TAR/GZ/BZ2/XZ/LZMA/ZSTD/LZ4/ISO/CAB/AR/CPIO)
//   - 自动识别tarball（压缩包装内的TAR容器）
//   - 加密压缩包返回PASSWORD_REQUIRED，调用方带密码重试即可
func Extract(data []byte, options *Options) (*Result, error) {
	return ExtractContext(context.Background(), data, options)
}

// ExtractContext 带上下文的解压
// ctx取消时停止调度后续引擎尝试并返回CANCELLED
func ExtractContext(ctx context.Context, data []byte, options *Options) (*Result, error) {
	if options == nil {
		options = &Options{}
	}

	coordinator := defaultCoordinator
	if options.Logger != nil {
		coordinator = NewCoordinator(options.Logger)
	}

	return coordinator.Extract(ctx, Input{
		FileName: options.FileName,
		Data:     data,
		Password: options.Password,
		Progress: options.Progress,
	})
}

// ExtractWithPassword 带密码的解压
//
// 参数:
//
//	data: 压缩包原始字节
//	fileName: 原始文件名提示(可为空)
//	password: 密码
func ExtractWithPassword(data []byte, fileName, password string) (*Result, error) {
	return Extract(data, &Options{
		FileName: fileName,
		Password: password,
	})
}

// IsSupported 检查字节内容是否为支持的压缩格式
//
// 返回:
//
//	bool: 是否支持
//	string: 格式名称
func IsSupported(data []byte) (bool, string) {
	format := DetectFormat(data)
	if format.Tag == FormatUnknown {
		return false, format.Tag.String()
	}
	_, claimed := enginePriority[format.Tag]
	return claimed, format.String()
}

// GetSupportedFormats 获取支持的格式列表
func GetSupportedFormats() []string {
	return []string{
		"zip", "7z", "rar", "tar",
		"gz", "tar.gz", "bz2", "tar.bz2", "xz", "tar.xz",
		"lzma", "zst", "lz4", "iso", "ar", "cpio",
	}
}
