package unarc

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	utfencoding "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingHandler 条目名编码处理器接口
// 老式ZIP/RAR的条目名经常携带GBK/Shift-JIS等区域编码，需要修复为UTF-8
type EncodingHandler interface {
	// DecodeName 按指定编码解码条目名
	DecodeName(name, encoding string) (string, error)

	// DetectEncoding 检测条目名编码
	DetectEncoding(name string) string

	// SmartDecodeName 智能解码条目名（自动检测编码）
	SmartDecodeName(name string) (string, string)
}

// defaultEncodingHandler 默认编码处理器实现
type defaultEncodingHandler struct{}

// NewEncodingHandler 创建新的编码处理器
func NewEncodingHandler() EncodingHandler {
	return &defaultEncodingHandler{}
}

// DecodeName 按指定编码解码条目名
func (h *defaultEncodingHandler) DecodeName(name, encoding string) (string, error) {
	if encoding == "" || encoding == "UTF-8" {
		return name, nil
	}

	decoder := h.getDecoder(encoding)
	if decoder == nil {
		return name, NewExtractError(ErrInternalError, "不支持的编码: "+encoding, name, nil)
	}

	decodedBytes, _, err := transform.Bytes(decoder, []byte(name))
	if err != nil {
		return name, err
	}
	return string(decodedBytes), nil
}

// DetectEncoding 检测条目名编码
func (h *defaultEncodingHandler) DetectEncoding(name string) string {
	if utf8.ValidString(name) {
		return "UTF-8"
	}

	// 使用chardet库进行检测
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest([]byte(name))
	if err == nil && result.Confidence > 80 {
		switch strings.ToUpper(result.Charset) {
		case "GB2312", "GBK", "GB18030":
			return "GBK"
		case "BIG5":
			return "BIG5"
		case "SHIFT_JIS", "SJIS":
			return "SHIFT_JIS"
		case "EUC-KR":
			return "EUC-KR"
		case "ISO-8859-1", "WINDOWS-1252":
			return "ISO-8859-1"
		case "UTF-16LE", "UTF-16BE":
			return "UTF-16"
		}
	}

	// 检测失败时退回GBK，中文压缩包最常见
	return "GBK"
}

// SmartDecodeName 智能解码条目名
// 已是有效UTF-8的名字原样返回；否则检测编码后解码，
// 解码失败时保留原始名字，由归一化阶段继续处理
func (h *defaultEncodingHandler) SmartDecodeName(name string) (string, string) {
	if utf8.ValidString(name) {
		return name, "UTF-8"
	}

	encoding := h.DetectEncoding(name)
	decoded, err := h.DecodeName(name, encoding)
	if err != nil || !utf8.ValidString(decoded) {
		return name, "UTF-8"
	}
	return decoded, encoding
}

// getDecoder 根据编码名称获取解码器
func (h *defaultEncodingHandler) getDecoder(encoding string) transform.Transformer {
	switch strings.ToUpper(encoding) {
	case "GBK", "GB2312":
		return simplifiedchinese.GBK.NewDecoder()
	case "BIG5":
		return traditionalchinese.Big5.NewDecoder()
	case "SHIFT_JIS", "SJIS":
		return japanese.ShiftJIS.NewDecoder()
	case "EUC-KR":
		return korean.EUCKR.NewDecoder()
	case "ISO-8859-1", "LATIN1":
		return charmap.ISO8859_1.NewDecoder()
	case "CP866":
		return charmap.CodePage866.NewDecoder()
	case "CP1252", "WINDOWS-1252":
		return charmap.Windows1252.NewDecoder()
	case "UTF-16":
		return utfencoding.UTF16(utfencoding.LittleEndian, utfencoding.UseBOM).NewDecoder()
	default:
		return nil
	}
}
