package unarc

import (
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"io"

	"github.com/bodgit/sevenzip"
)

// specialistEngine 专用引擎
// 只声明7Z与裸BZIP2两个格式，且在这两个标签上优先于通用引擎：
// 7Z路径对AES-256强加密做逐条目探测，准确区分"需要密码"与"密码错误"；
// BZIP2路径用原生解码器处理裸流，元数据往返更可靠
type specialistEngine struct{}

// newSpecialistEngine 创建专用引擎
func newSpecialistEngine() *specialistEngine {
	return &specialistEngine{}
}

// name 返回引擎名称
func (e *specialistEngine) name() string {
	return engineSpecialist
}

// capabilities 返回引擎声明支持的格式集合
func (e *specialistEngine) capabilities() []FormatTag {
	return []FormatTag{Format7Z, FormatBZIP2}
}

// extract 按格式分发
func (e *specialistEngine) extract(ctx context.Context, req *extractRequest) ([]rawEntry, error) {
	switch req.format.Tag {
	case Format7Z:
		return e.extract7z(req)
	case FormatBZIP2:
		return e.extractBzip2(req)
	default:
		return nil, NewExtractError(ErrUnsupportedFormat, "专用引擎只处理7Z和BZIP2", req.fileName, nil)
	}
}

// extract7z 解压7Z格式（加密感知路径）
// 7Z把加密信息藏在编码器链里，打开档案和打开条目都可能在密码上失败，
// 两处都要按是否已提供密码归类为"需要密码"或"密码错误"
func (e *specialistEngine) extract7z(req *extractRequest) ([]rawEntry, error) {
	var reader *sevenzip.Reader
	var err error

	if req.passwordSupplied() {
		reader, err = sevenzip.NewReaderWithPassword(bytes.NewReader(req.data), int64(len(req.data)), req.password)
	} else {
		reader, err = sevenzip.NewReader(bytes.NewReader(req.data), int64(len(req.data)))
	}
	if err != nil {
		return nil, e.classify7zError(err, req)
	}

	entries := make([]rawEntry, 0, len(reader.File))
	for i, file := range reader.File {
		info := file.FileInfo()
		if info.IsDir() {
			entries = append(entries, rawEntry{
				path:    file.Name,
				isDir:   true,
				modTime: file.Modified,
			})
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, e.classify7zError(err, req)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, e.classify7zError(err, req)
		}

		entries = append(entries, rawEntry{
			path:    file.Name,
			data:    data,
			size:    int64(len(data)),
			modTime: file.Modified,
		})
		req.progress.reportRange(30, 90, i+1, len(reader.File))
	}

	return entries, nil
}

// classify7zError 归类7Z解码错误
// 密码状态是压缩包的属性而不是引擎的属性，这里的归类必须可靠：
// 协调器依赖它决定是否把结果作为终态返回给调用方。
// sevenzip库对加密相关失败返回带Encrypted标记的ReadError，优先使用该
// 类型化信号，关键词匹配只作兜底
func (e *specialistEngine) classify7zError(err error, req *extractRequest) *ExtractError {
	var readErr *sevenzip.ReadError
	if errors.As(err, &readErr) && readErr.Encrypted {
		if req.passwordSupplied() {
			return NewExtractError(ErrWrongPassword, "7Z密码错误", req.fileName, err)
		}
		return NewExtractError(ErrPasswordRequired, "7Z压缩包已加密，需要密码", req.fileName, err)
	}

	if isPasswordErrorMessage(err.Error()) {
		if req.passwordSupplied() {
			return NewExtractError(ErrWrongPassword, "7Z密码错误", req.fileName, err)
		}
		return NewExtractError(ErrPasswordRequired, "7Z压缩包已加密，需要密码", req.fileName, err)
	}
	return classifyEngineError(err, req.fileName, req.passwordSupplied())
}

// extractBzip2 解压裸BZIP2单流
// 输出为一个逻辑条目，名字从文件名提示剥掉.bz2后缀推导。
// 包裹TAR的流不属于本引擎（协调器路由到通用引擎），防御性拒绝
func (e *specialistEngine) extractBzip2(req *extractRequest) ([]rawEntry, error) {
	decompressed, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(req.data)))
	if err != nil {
		return nil, NewExtractError(ErrCorruptedArchive, "BZIP2流解压失败", req.fileName, err)
	}
	req.progress.report(60)

	if Sniff(decompressed) == FormatTAR {
		return nil, NewExtractError(ErrUnsupportedFormat, "BZIP2内部为TAR容器，需由通用引擎处理", req.fileName, nil)
	}

	name := streamEntryName(FormatBZIP2, req.fileName, "")
	return []rawEntry{{
		path: name,
		data: decompressed,
		size: int64(len(decompressed)),
	}}, nil
}

// 编译期断言：specialistEngine实现engine接口
var _ engine = (*specialistEngine)(nil)
