package unarc

import (
	"errors"
	"strings"
)

// isPasswordErrorMessage 检查错误消息是否为密码相关
// 底层解码库大多不提供类型化的密码错误，只能按关键词识别。
// 对通用引擎这是尽力而为的分类：部分格式（如ZipCrypto）的错误密码
// 表现为解压流损坏，无法与真实损坏百分之百区分
func isPasswordErrorMessage(msg string) bool {
	msg = strings.ToLower(msg)

	passwordKeywords := []string{
		"password",
		"encrypted",
		"encryption",
		"decrypt",
		"wrong password",
		"invalid password",
		"needs password",
		"requires password",
	}

	for _, keyword := range passwordKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// isCorruptionErrorMessage 检查错误消息是否为数据损坏相关
func isCorruptionErrorMessage(msg string) bool {
	msg = strings.ToLower(msg)

	corruptionKeywords := []string{
		"corrupt",
		"damaged",
		"checksum",
		"crc",
		"invalid header",
		"unexpected eof",
		"not a valid",
		"bad magic",
		"malformed",
	}

	for _, keyword := range corruptionKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// classifyEngineError 将解码库错误归类为类型化的解压错误
// 已经是ExtractError的错误原样返回；密码相关错误按是否已提供密码
// 区分为"需要密码"与"密码错误"；其余按损坏/内部错误归类
func classifyEngineError(err error, path string, passwordSupplied bool) *ExtractError {
	if err == nil {
		return nil
	}

	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return extractErr
	}

	msg := err.Error()

	if isPasswordErrorMessage(msg) {
		if passwordSupplied {
			return NewExtractError(ErrWrongPassword, "密码错误", path, err)
		}
		return NewExtractError(ErrPasswordRequired, "压缩包已加密，需要密码", path, err)
	}

	if isCorruptionErrorMessage(msg) {
		return NewExtractError(ErrCorruptedArchive, "压缩包数据损坏", path, err)
	}

	if strings.Contains(strings.ToLower(msg), "unsupported") ||
		strings.Contains(strings.ToLower(msg), "unknown method") {
		return NewExtractError(ErrUnsupportedFormat, "引擎无法解析该字节布局", path, err)
	}

	return NewExtractError(ErrInternalError, "解压失败", path, err)
}
