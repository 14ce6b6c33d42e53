package unarc

import (
	"context"

	"github.com/charmbracelet/log"
)

// 引擎名称，同时作为结果中对外暴露的标识
const (
	engineGeneral    = "general"
	engineSpecialist = "specialist"
)

// engine 解压引擎接口 (内部使用)
// 两个引擎实现同一契约，由协调器按优先级表选择
type engine interface {
	// name 返回引擎名称
	name() string

	// capabilities 返回引擎声明支持的格式集合
	capabilities() []FormatTag

	// extract 解压缓冲区，失败时返回类型化的ExtractError
	extract(ctx context.Context, req *extractRequest) ([]rawEntry, error)
}

// extractRequest 单次引擎尝试的请求 (内部使用)
type extractRequest struct {
	// data 压缩包原始字节
	data []byte

	// format 协调器嗅探出的格式
	format DetectedFormat

	// fileName 原始文件名提示（只用于推导单流条目名）
	fileName string

	// password 调用方提供的密码，空串表示未提供
	password string

	// progress 进度报告器，引擎遍历条目时上报增量进度
	progress *progressReporter

	// logger 结构化日志
	logger *log.Logger
}

// passwordSupplied 是否提供了密码
func (r *extractRequest) passwordSupplied() bool {
	return r.password != ""
}

// enginePriority 格式到引擎的优先级表
// 顺序即尝试顺序，全序且确定：同一格式每次都先尝试同一引擎。
// 专用引擎只在7Z（强加密时通用引擎误报密码状态）和裸BZIP2流
// （原生解码器元数据更可靠）两个标签上优先
var enginePriority = map[FormatTag][]string{
	FormatZIP:   {engineGeneral},
	Format7Z:    {engineSpecialist, engineGeneral},
	FormatRAR:   {engineGeneral},
	FormatTAR:   {engineGeneral},
	FormatGZIP:  {engineGeneral},
	FormatBZIP2: {engineSpecialist, engineGeneral},
	FormatXZ:    {engineGeneral},
	FormatLZMA:  {engineGeneral},
	FormatZSTD:  {engineGeneral},
	FormatLZ4:   {engineGeneral},
	FormatISO:   {engineGeneral},
	FormatCAB:   {engineGeneral},
	FormatAR:    {engineGeneral},
	FormatCPIO:  {engineGeneral},
}

// enginesFor 返回格式对应的引擎尝试顺序
// 包裹TAR的包装格式（tarball）一律走通用引擎：专用引擎只处理裸流
func enginesFor(format DetectedFormat, engines map[string]engine) []engine {
	names, ok := enginePriority[format.Tag]
	if !ok {
		return nil
	}

	if format.WrapsTar {
		names = []string{engineGeneral}
	}

	ordered := make([]engine, 0, len(names))
	for _, name := range names {
		if eng, ok := engines[name]; ok {
			ordered = append(ordered, eng)
		}
	}
	return ordered
}
