package unarc

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// wrappedStream 解开包装格式后的流
// 部分格式（GZIP）在头部记录了原始文件名
type wrappedStream struct {
	reader   io.Reader
	origName string
}

// newWrapperReader 为包装格式创建解压流
// 只负责解开单层压缩，不解析内部容器结构
func newWrapperReader(tag FormatTag, r io.Reader) (*wrappedStream, error) {
	switch tag {
	case FormatGZIP:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &wrappedStream{reader: gz, origName: gz.Header.Name}, nil

	case FormatBZIP2:
		return &wrappedStream{reader: bzip2.NewReader(r)}, nil

	case FormatXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		return &wrappedStream{reader: xr}, nil

	case FormatLZMA:
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("lzma reader: %w", err)
		}
		return &wrappedStream{reader: lr}, nil

	case FormatZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &wrappedStream{reader: zr.IOReadCloser()}, nil

	case FormatLZ4:
		return &wrappedStream{reader: lz4.NewReader(r)}, nil

	default:
		return nil, fmt.Errorf("不是包装格式: %s", tag)
	}
}

// peekWrappedTar 解压包装流的头部并二次嗅探，判断内部是否为TAR容器
// 解压失败按"不是tarball"处理，由引擎负责报告具体错误
func peekWrappedTar(tag FormatTag, data []byte) bool {
	ws, err := newWrapperReader(tag, bytes.NewReader(data))
	if err != nil {
		return false
	}

	// TAR识别需要偏移257处的ustar标识，读满262字节即可
	head := make([]byte, 262)
	n, err := io.ReadFull(ws.reader, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}

	return Sniff(head[:n]) == FormatTAR
}

// wrapperSuffixes 包装格式对应的扩展名
var wrapperSuffixes = map[FormatTag][]string{
	FormatGZIP:  {".gz", ".gzip"},
	FormatBZIP2: {".bz2", ".bzip2", ".bz"},
	FormatXZ:    {".xz"},
	FormatLZMA:  {".lzma"},
	FormatZSTD:  {".zst", ".zstd"},
	FormatLZ4:   {".lz4"},
}

// streamEntryName 推导单流压缩文件解压后的条目名
// 优先使用流内记录的原始名，其次剥掉文件名提示的压缩扩展名
func streamEntryName(tag FormatTag, fileName, origName string) string {
	if origName != "" {
		return path.Base(origName)
	}

	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	for _, suffix := range wrapperSuffixes[tag] {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	if name == "" {
		name = "data"
	}
	return name
}
