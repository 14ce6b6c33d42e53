package unarc

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// coordinatorState 协调器状态 (内部使用)
// 重试逻辑用显式状态机表达，"密码错误不换引擎"的不变式只在一处裁决
type coordinatorState int

const (
	stateStart coordinatorState = iota
	stateSniffing
	stateEngineSelected
	stateAttempting
	stateSuccess
	stateNeedsPassword
	stateFailed
)

// Coordinator 解压协调器
// 流程：嗅探格式 → 按优先级表选引擎 → 尝试解压 → 失败归类 →
// 结构性失败换下一个引擎，密码失败直接返回由调用方带密码重试。
// 单次请求自包含且顺序执行，多个请求间不共享可变状态，可并发调用
type Coordinator struct {
	engines    map[string]engine
	normalizer *entryNormalizer
	logger     *log.Logger
}

// NewCoordinator 创建协调器
// logger为nil时使用静默日志（库默认不产生输出）
func NewCoordinator(logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	general := newGeneralEngine()
	specialist := newSpecialistEngine()

	return &Coordinator{
		engines: map[string]engine{
			general.name():    general,
			specialist.name(): specialist,
		},
		normalizer: newEntryNormalizer(logger),
		logger:     logger,
	}
}

// Extract 执行单次解压请求
//
// 成功时返回归一化条目列表与实际使用的引擎；失败时返回类型化的
// *ExtractError，调用方用CodeOf/IsPasswordRequired判断是否可重试：
//   - PASSWORD_REQUIRED / WRONG_PASSWORD: 带（新）密码重新调用即可
//   - UNSUPPORTED_FORMAT / CORRUPT / UNKNOWN_ERROR: 重试无效
//   - CANCELLED: ctx被取消
func (c *Coordinator) Extract(ctx context.Context, in Input) (*Result, error) {
	progress := newProgressReporter(in.Progress)
	progress.report(0)

	var (
		state    = stateStart
		format   DetectedFormat
		pending  []engine
		raw      []rawEntry
		lastErr  *ExtractError
		usedName string
	)

	for {
		// 取消是协作式的：每次状态转移前检查，不再调度后续引擎尝试
		if err := ctx.Err(); err != nil && state != stateSuccess {
			return nil, NewExtractError(ErrCancelled, "解压已取消", in.FileName, err)
		}

		switch state {
		case stateStart:
			state = stateSniffing

		case stateSniffing:
			format = DetectFormat(in.Data)
			progress.report(10)
			c.logger.Debug("格式嗅探完成", "format", format.String(), "hint", in.FileName)

			if format.Tag == FormatUnknown {
				// UNKNOWN是终态，不尝试任何引擎
				return nil, NewExtractError(ErrUnsupportedFormat, "无法识别的压缩格式", in.FileName, nil)
			}

			pending = enginesFor(format, c.engines)
			if len(pending) == 0 {
				return nil, NewExtractError(ErrUnsupportedFormat,
					fmt.Sprintf("没有引擎声明支持格式 %s", format.Tag), in.FileName, nil)
			}
			state = stateEngineSelected

		case stateEngineSelected:
			progress.report(20)
			state = stateAttempting

		case stateAttempting:
			eng := pending[0]
			pending = pending[1:]
			usedName = eng.name()
			c.logger.Debug("开始引擎尝试", "engine", usedName, "format", format.Tag)

			entries, err := c.runAttempt(ctx, eng, &extractRequest{
				data:     in.Data,
				format:   format,
				fileName: in.FileName,
				password: in.Password,
				progress: progress,
				logger:   c.logger,
			})
			if err == nil {
				raw = entries
				state = stateSuccess
				continue
			}

			attemptErr := classifyEngineError(err, in.FileName, in.Password != "")
			c.logger.Debug("引擎尝试失败", "engine", usedName, "code", attemptErr.Type)

			switch attemptErr.Type {
			case ErrPasswordRequired:
				// 密码状态是压缩包的属性而不是引擎的属性，不做引擎回退
				state = stateNeedsPassword
				lastErr = attemptErr
			case ErrWrongPassword, ErrCancelled, ErrInternalError:
				// 换引擎解决不了密码错误；内部错误按不可恢复处理
				state = stateFailed
				lastErr = attemptErr
			case ErrUnsupportedFormat, ErrCorruptedArchive:
				lastErr = attemptErr
				if len(pending) > 0 {
					state = stateEngineSelected
				} else {
					state = stateFailed
				}
			default:
				state = stateFailed
				lastErr = attemptErr
			}

		case stateSuccess:
			progress.report(90)
			entries := c.normalizer.Normalize(raw)
			progress.report(100)
			return &Result{
				Engine:  usedName,
				Format:  format,
				Entries: entries,
			}, nil

		case stateNeedsPassword, stateFailed:
			return nil, lastErr
		}
	}
}

// runAttempt 在独立goroutine中执行一次引擎尝试
// 取消时放弃在途的尝试而不是等它完成（缓冲通道让其自行退出）
func (c *Coordinator) runAttempt(ctx context.Context, eng engine, req *extractRequest) ([]rawEntry, error) {
	type attemptOutcome struct {
		entries []rawEntry
		err     error
	}

	ch := make(chan attemptOutcome, 1)
	go func() {
		entries, err := eng.extract(ctx, req)
		ch <- attemptOutcome{entries: entries, err: err}
	}()

	select {
	case <-ctx.Done():
		// 被放弃的尝试可能仍在途，停用报告器避免返回后再触发调用方回调
		req.progress.disarm()
		return nil, NewExtractError(ErrCancelled, "解压已取消", req.fileName, ctx.Err())
	case outcome := <-ch:
		return outcome.entries, outcome.err
	}
}
