package unarc

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/bodgit/sevenzip"
	"github.com/cavaliergopher/cpio"
	"github.com/kdomanski/iso9660"
	"github.com/nwaples/rardecode/v2"
	encryptedzip "github.com/yeka/zip"
)

// generalEngine 通用多格式引擎
// 默认引擎：覆盖ZIP/7Z/RAR/TAR/ISO/CAB/AR/CPIO等容器格式，
// 以及GZIP/BZIP2/XZ/LZMA/ZSTD/LZ4裸包装流（无内部容器时解为单条目）。
// 密码状态的判断依赖底层库的错误消息，属于尽力而为的分类
type generalEngine struct {
	encodingHandler EncodingHandler
}

// newGeneralEngine 创建通用引擎
func newGeneralEngine() *generalEngine {
	return &generalEngine{
		encodingHandler: NewEncodingHandler(),
	}
}

// name 返回引擎名称
func (e *generalEngine) name() string {
	return engineGeneral
}

// capabilities 返回引擎声明支持的格式集合
func (e *generalEngine) capabilities() []FormatTag {
	return []FormatTag{
		FormatZIP, Format7Z, FormatRAR, FormatTAR,
		FormatISO, FormatCAB, FormatAR, FormatCPIO,
		FormatGZIP, FormatBZIP2, FormatXZ, FormatLZMA, FormatZSTD, FormatLZ4,
	}
}

// extract 按格式分发到对应的解码路径
func (e *generalEngine) extract(ctx context.Context, req *extractRequest) ([]rawEntry, error) {
	switch req.format.Tag {
	case FormatZIP:
		return e.extractZip(req)
	case Format7Z:
		return e.extract7z(req)
	case FormatRAR:
		return e.extractRar(req)
	case FormatTAR:
		return e.extractTar(req.data, req)
	case FormatISO:
		return e.extractISO(req)
	case FormatAR:
		return e.extractAr(req)
	case FormatCPIO:
		return e.extractCpio(req)
	case FormatCAB:
		// CAB的解码没有可用的纯Go实现，声明支持仅用于嗅探路由
		return nil, NewExtractError(ErrUnsupportedFormat, "CAB格式暂无可用解码器", req.fileName, nil)
	case FormatGZIP, FormatBZIP2, FormatXZ, FormatLZMA, FormatZSTD, FormatLZ4:
		return e.extractWrapped(req)
	default:
		return nil, NewExtractError(ErrUnsupportedFormat,
			fmt.Sprintf("通用引擎不支持的格式: %s", req.format.Tag), req.fileName, nil)
	}
}

// extractZip 解压ZIP格式
// 使用yeka/zip库以支持ZipCrypto和AES加密条目。
// 注意：ZipCrypto下错误密码常表现为flate流损坏，与真实损坏无法可靠区分
func (e *generalEngine) extractZip(req *extractRequest) ([]rawEntry, error) {
	reader, err := encryptedzip.NewReader(bytes.NewReader(req.data), int64(len(req.data)))
	if err != nil {
		return nil, classifyEngineError(err, req.fileName, req.passwordSupplied())
	}

	entries := make([]rawEntry, 0, len(reader.File))
	for i, file := range reader.File {
		if file.IsEncrypted() {
			if !req.passwordSupplied() {
				return nil, NewExtractError(ErrPasswordRequired, "ZIP压缩包已加密，需要密码", file.Name, nil)
			}
			file.SetPassword(req.password)
		}

		// 智能解码条目名（老式ZIP常携带GBK等区域编码）
		name, detected := e.encodingHandler.SmartDecodeName(file.Name)
		if detected != "UTF-8" {
			req.logger.Debug("条目名编码修复", "from", detected, "name", name)
		}

		info := file.FileInfo()
		if info.IsDir() {
			entries = append(entries, rawEntry{
				path:    name,
				isDir:   true,
				modTime: info.ModTime(),
			})
			continue
		}

		data, err := readZipFile(file)
		if err != nil {
			if file.IsEncrypted() {
				// 加密条目读取失败几乎总是密码问题
				return nil, NewExtractError(ErrWrongPassword, "ZIP密码错误", name, err)
			}
			return nil, classifyEngineError(err, name, req.passwordSupplied())
		}

		entries = append(entries, rawEntry{
			path:    name,
			data:    data,
			size:    int64(len(data)),
			modTime: info.ModTime(),
		})
		req.progress.reportRange(30, 90, i+1, len(reader.File))
	}

	return entries, nil
}

// readZipFile 读取ZIP中的单个条目
func readZipFile(file *encryptedzip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extract7z 解压7Z格式
// 通用引擎的7Z路径不做逐条目的加密探测，对AES-256强加密的压缩包
// 可能把密码问题误报为损坏——这正是专用引擎在7Z上优先的原因
func (e *generalEngine) extract7z(req *extractRequest) ([]rawEntry, error) {
	var reader *sevenzip.Reader
	var err error

	if req.passwordSupplied() {
		reader, err = sevenzip.NewReaderWithPassword(bytes.NewReader(req.data), int64(len(req.data)), req.password)
	} else {
		reader, err = sevenzip.NewReader(bytes.NewReader(req.data), int64(len(req.data)))
	}
	if err != nil {
		return nil, classifyEngineError(err, req.fileName, req.passwordSupplied())
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
			return nil, classifyEngineError(err, file.Name, req.passwordSupplied())
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, classifyEngineError(err, file.Name, req.passwordSupplied())
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

// extractRar 解压RAR格式（v4与v5）
func (e *generalEngine) extractRar(req *extractRequest) ([]rawEntry, error) {
	var reader *rardecode.Reader
	var err error

	if req.passwordSupplied() {
		reader, err = rardecode.NewReader(bytes.NewReader(req.data), rardecode.Password(req.password))
	} else {
		reader, err = rardecode.NewReader(bytes.NewReader(req.data))
	}
	if err != nil {
		return nil, classifyEngineError(err, req.fileName, req.passwordSupplied())
	}

	var entries []rawEntry
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classifyEngineError(err, req.fileName, req.passwordSupplied())
		}

		name, _ := e.encodingHandler.SmartDecodeName(header.Name)

		if header.IsDir {
			entries = append(entries, rawEntry{
				path:    name,
				isDir:   true,
				modTime: header.ModificationTime,
			})
			continue
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, classifyEngineError(err, name, req.passwordSupplied())
		}

		entries = append(entries, rawEntry{
			path:    name,
			data:    data,
			size:    int64(len(data)),
			modTime: header.ModificationTime,
		})
	}

	return entries, nil
}

// extractTar 解压TAR容器
// 同时服务裸TAR与解开包装后的tarball；符号链接等特殊条目跳过
func (e *generalEngine) extractTar(data []byte, req *extractRequest) ([]rawEntry, error) {
	reader := tar.NewReader(bytes.NewReader(data))

	var entries []rawEntry
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewExtractError(ErrCorruptedArchive, "TAR结构无效", req.fileName, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			entries = append(entries, rawEntry{
				path:    header.Name,
				isDir:   true,
				modTime: header.ModTime,
			})
		case tar.TypeReg:
			content, err := io.ReadAll(reader)
			if err != nil {
				return nil, NewExtractError(ErrCorruptedArchive, "TAR条目读取失败", header.Name, err)
			}
			entries = append(entries, rawEntry{
				path:    header.Name,
				data:    content,
				size:    header.Size,
				modTime: header.ModTime,
			})
		default:
			req.logger.Debug("跳过特殊TAR条目", "path", header.Name, "type", header.Typeflag)
		}
	}

	return entries, nil
}

// extractWrapped 解压单流包装格式
// 解开一层压缩后二次嗅探：内部为TAR则按容器解析（tarball情况），
// 否则作为单个逻辑条目返回，条目名从流内记录或文件名提示推导
func (e *generalEngine) extractWrapped(req *extractRequest) ([]rawEntry, error) {
	ws, err := newWrapperReader(req.format.Tag, bytes.NewReader(req.data))
	if err != nil {
		return nil, NewExtractError(ErrCorruptedArchive,
			fmt.Sprintf("%s流头部无效", req.format.Tag), req.fileName, err)
	}

	decompressed, err := io.ReadAll(ws.reader)
	if err != nil {
		return nil, NewExtractError(ErrCorruptedArchive,
			fmt.Sprintf("%s流解压失败", req.format.Tag), req.fileName, err)
	}
	req.progress.report(60)

	if Sniff(decompressed) == FormatTAR {
		return e.extractTar(decompressed, req)
	}

	name := streamEntryName(req.format.Tag, req.fileName, ws.origName)
	return []rawEntry{{
		path: name,
		data: decompressed,
		size: int64(len(decompressed)),
	}}, nil
}

// extractISO 解压ISO9660镜像
func (e *generalEngine) extractISO(req *extractRequest) ([]rawEntry, error) {
	image, err := iso9660.OpenImage(bytes.NewReader(req.data))
	if err != nil {
		return nil, NewExtractError(ErrCorruptedArchive, "ISO镜像无效", req.fileName, err)
	}

	root, err := image.RootDir()
	if err != nil {
		return nil, NewExtractError(ErrCorruptedArchive, "ISO根目录读取失败", req.fileName, err)
	}

	var entries []rawEntry
	if err := e.walkISO(root, "", &entries); err != nil {
		return nil, NewExtractError(ErrCorruptedArchive, "ISO目录遍历失败", req.fileName, err)
	}
	return entries, nil
}

// walkISO 递归遍历ISO目录树
func (e *generalEngine) walkISO(dir *iso9660.File, prefix string, entries *[]rawEntry) error {
	children, err := dir.GetChildren()
	if err != nil {
		return err
	}

	for _, child := range children {
		name := child.Name()
		if prefix != "" {
			name = prefix + "/" + name
		}

		if child.IsDir() {
			*entries = append(*entries, rawEntry{
				path:    name,
				isDir:   true,
				modTime: child.ModTime(),
			})
			if err := e.walkISO(child, name, entries); err != nil {
				return err
			}
			continue
		}

		data, err := io.ReadAll(child.Reader())
		if err != nil {
			return err
		}
		*entries = append(*entries, rawEntry{
			path:    name,
			data:    data,
			size:    child.Size(),
			modTime: child.ModTime(),
		})
	}

	return nil
}

// extractAr 解压Unix AR档案（.a/.deb外层）
// AR没有目录结构，条目都是文件；GNU变体的名字带"/"结尾，需修剪
func (e *generalEngine) extractAr(req *extractRequest) ([]rawEntry, error) {
	reader := ar.NewReader(bytes.NewReader(req.data))

	var entries []rawEntry
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewExtractError(ErrCorruptedArchive, "AR结构无效", req.fileName, err)
		}

		name := strings.TrimRight(strings.TrimSpace(header.Name), "/")
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, NewExtractError(ErrCorruptedArchive, "AR条目读取失败", name, err)
		}

		entries = append(entries, rawEntry{
			path:    name,
			data:    data,
			size:    header.Size,
			modTime: header.ModTime,
		})
	}

	return entries, nil
}

// extractCpio 解压CPIO档案（SVR4 newc变体）
func (e *generalEngine) extractCpio(req *extractRequest) ([]rawEntry, error) {
	reader := cpio.NewReader(bytes.NewReader(req.data))

	var entries []rawEntry
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewExtractError(ErrCorruptedArchive, "CPIO结构无效", req.fileName, err)
		}

		info := header.FileInfo()
		if info.IsDir() {
			entries = append(entries, rawEntry{
				path:    header.Name,
				isDir:   true,
				modTime: header.ModTime,
			})
			continue
		}
		if !info.Mode().IsRegular() {
			req.logger.Debug("跳过特殊CPIO条目", "path", header.Name)
			continue
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, NewExtractError(ErrCorruptedArchive, "CPIO条目读取失败", header.Name, err)
		}

		entries = append(entries, rawEntry{
			path:    header.Name,
			data:    data,
			size:    header.Size,
			modTime: header.ModTime,
		})
	}

	return entries, nil
}

// 编译期断言：generalEngine实现engine接口
var _ engine = (*generalEngine)(nil)
