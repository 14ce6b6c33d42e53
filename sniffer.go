package unarc

import (
	"bytes"
)

// signature 固定偏移处的魔数签名
type signature struct {
	offset int
	magic  []byte
	tag    FormatTag
}

// signatureTable 魔数签名表，按强弱顺序匹配
// 多字节的强签名在前；LZMA等弱签名不在表内，单独兜底检查
var signatureTable = []signature{
	// RAR v5（较长的签名先匹配）
	{offset: 0, magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01}, tag: FormatRAR},
	// RAR v4
	{offset: 0, magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}, tag: FormatRAR},
	// 7-Zip
	{offset: 0, magic: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, tag: Format7Z},
	// XZ
	{offset: 0, magic: []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}, tag: FormatXZ},
	// ZIP（PK，同时覆盖空包PK\x05\x06等变体）
	{offset: 0, magic: []byte{0x50, 0x4B}, tag: FormatZIP},
	// GZIP
	{offset: 0, magic: []byte{0x1F, 0x8B}, tag: FormatGZIP},
	// BZIP2（BZh）
	{offset: 0, magic: []byte{0x42, 0x5A, 0x68}, tag: FormatBZIP2},
	// Zstandard
	{offset: 0, magic: []byte{0x28, 0xB5, 0x2F, 0xFD}, tag: FormatZSTD},
	// LZ4帧
	{offset: 0, magic: []byte{0x04, 0x22, 0x4D, 0x18}, tag: FormatLZ4},
	// CAB（MSCF）
	{offset: 0, magic: []byte{0x4D, 0x53, 0x43, 0x46}, tag: FormatCAB},
	// AR / DEB（"!<arch>\n"）
	{offset: 0, magic: []byte{0x21, 0x3C, 0x61, 0x72, 0x63, 0x68, 0x3E, 0x0A}, tag: FormatAR},
	// CPIO newc / crc / odc ASCII变体
	{offset: 0, magic: []byte("070701"), tag: FormatCPIO},
	{offset: 0, magic: []byte("070702"), tag: FormatCPIO},
	{offset: 0, magic: []byte("070707"), tag: FormatCPIO},
	// CPIO 二进制变体（0o070707小端）
	{offset: 0, magic: []byte{0xC7, 0x71}, tag: FormatCPIO},
	// TAR（ustar标识在偏移257处）
	{offset: 257, magic: []byte("ustar"), tag: FormatTAR},
	// ISO9660（CD001主卷描述符，三个候选扇区偏移）
	{offset: 0x8001, magic: []byte("CD001"), tag: FormatISO},
	{offset: 0x8801, magic: []byte("CD001"), tag: FormatISO},
	{offset: 0x9001, magic: []byte("CD001"), tag: FormatISO},
}

// Sniff 根据字节内容检测压缩格式
// 纯函数：只依赖缓冲区内容，从不参考文件名
// 缓冲区长度不足的检查会被跳过而不是越界读取，无匹配时返回FormatUnknown
func Sniff(data []byte) FormatTag {
	for _, sig := range signatureTable {
		end := sig.offset + len(sig.magic)
		if end > len(data) {
			continue
		}
		if bytes.Equal(data[sig.offset:end], sig.magic) {
			return sig.tag
		}
	}

	// LZMA传统流格式没有可靠魔数，置信度低，只在所有强签名都未命中时检查
	if isLegacyLZMA(data) {
		return FormatLZMA
	}

	return FormatUnknown
}

// isLegacyLZMA 检测LZMA传统流格式
// 头部为1字节属性 + 4字节小端字典大小 + 8字节解压后长度
// 0x5D是最常见的属性字节（lc=3 lp=0 pb=2），字典大小要求为合理的2的幂
func isLegacyLZMA(data []byte) bool {
	if len(data) < 13 {
		return false
	}
	if data[0] != 0x5D {
		return false
	}

	dictSize := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24
	// 字典大小必须为[64KiB, 1GiB]内的2的幂，低位字节非零的值在此一并排除
	if dictSize < 1<<16 || dictSize > 1<<30 {
		return false
	}
	return dictSize&(dictSize-1) == 0
}

// DetectFormat 检测压缩格式并识别包装的TAR容器
// 对GZIP/BZIP2/XZ/LZMA等包装格式会额外解压头部并二次嗅探，
// 区分tarball与单个压缩文件
func DetectFormat(data []byte) DetectedFormat {
	tag := Sniff(data)
	format := DetectedFormat{Tag: tag}

	if tag.IsCompressionWrapper() {
		format.WrapsTar = peekWrappedTar(tag, data)
	}

	return format
}
