// Package pipeline 串联工资单处理的各个阶段
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/freedkr/paycheck/internal/extractor"
	"github.com/freedkr/paycheck/internal/model"
	"github.com/freedkr/paycheck/internal/report"
)

// Fetcher 将file_url解析为文档字节
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// DocumentRenderer 将PDF渲染为页面图像
type DocumentRenderer interface {
	Render(ctx context.Context, data []byte) (*model.Document, error)
}

// TextRecognizer 对页面执行OCR
type TextRecognizer interface {
	Recognize(ctx context.Context, doc *model.Document) (*model.ExtractedText, error)
}

// ComplianceEvaluator 计算合规结果
type ComplianceEvaluator interface {
	Evaluate(fields model.StructuredFields) model.ComplianceResult
}

// ReportRenderer 生成报告文件
type ReportRenderer interface {
	Render(data report.Data) (*model.Report, error)
}

// Notifier 投递报告
type Notifier interface {
	Send(ctx context.Context, to string, rpt *model.Report) error
}

// Archiver 归档报告，可选
type Archiver interface {
	Archive(ctx context.Context, requestID string, rpt *model.Report) (string, error)
}

// Request 一次处理请求
type Request struct {
	RequestID string
	FileURL   string
	Email     string
}

// Outcome 处理结果；调用方负责 Report.Cleanup
type Outcome struct {
	Report      *model.Report
	Fields      model.StructuredFields
	Result      model.ComplianceResult
	FailedPages []int
	ArchivedAs  string
	// DeliveryErr 仅在允许邮件失败时返回报告的策略下非空
	DeliveryErr error
	Stage       model.Stage
}

// Options 处理策略
type Options struct {
	ReturnReportOnFailure bool
}

// Processor 请求编排器
type Processor struct {
	fetcher    Fetcher
	renderer   DocumentRenderer
	recognizer TextRecognizer
	evaluator  ComplianceEvaluator
	reporter   ReportRenderer
	notifier   Notifier
	archiver   Archiver
	options    Options
	logger     *slog.Logger
}

// Deps 编排器依赖
type Deps struct {
	Fetcher    Fetcher
	Renderer   DocumentRenderer
	Recognizer TextRecognizer
	Evaluator  ComplianceEvaluator
	Reporter   ReportRenderer
	Notifier   Notifier
	Archiver   Archiver
}

// NewProcessor 创建编排器
func NewProcessor(deps Deps, opts Options, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		fetcher:    deps.Fetcher,
		renderer:   deps.Renderer,
		recognizer: deps.Recognizer,
		evaluator:  deps.Evaluator,
		reporter:   deps.Reporter,
		notifier:   deps.Notifier,
		archiver:   deps.Archiver,
		options:    opts,
		logger:     logger,
	}
}

// Process 按 Received→Validated→Rendered→Extracted→Evaluated→Reported→Notified→Responded 顺序执行，
// 任一阶段失败即进入Failed并返回 *model.StageError，其Stage为未能进入的阶段
func (p *Processor) Process(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	log := p.logger.With("request_id", req.RequestID)
	out := &Outcome{Stage: model.StageReceived}
	log.Info("收到处理请求", "file_url", req.FileURL)

	// fail 记录未能进入的阶段
	fail := func(target model.Stage, err error) (*Outcome, error) {
		log.Error("处理失败", "from", out.Stage, "stage", target, "error", err, "duration", time.Since(start))
		out.Stage = model.StageFailed
		return nil, &model.StageError{Stage: target, Err: err}
	}
	advance := func(stage model.Stage, args ...any) {
		out.Stage = stage
		log.Info("阶段完成", append([]any{"stage", stage}, args...)...)
	}

	if req.FileURL == "" || req.Email == "" {
		return fail(model.StageValidated, model.NewValidationError("Missing required fields", missingFields(req)...))
	}
	advance(model.StageValidated)

	if err := ctx.Err(); err != nil {
		return fail(model.StageRendered, contextError(err))
	}
	data, err := p.fetcher.Fetch(ctx, req.FileURL)
	if err != nil {
		return fail(model.StageRendered, err)
	}
	doc, err := p.renderer.Render(ctx, data)
	if err != nil {
		return fail(model.StageRendered, err)
	}
	advance(model.StageRendered, "pages", doc.PageCount())

	text, err := p.recognizer.Recognize(ctx, doc)
	if err != nil {
		return fail(model.StageExtracted, err)
	}
	out.FailedPages = text.FailedPages()
	if len(out.FailedPages) > 0 {
		log.Warn("部分页面识别失败", "pages", out.FailedPages, "error", text.Errors)
	}
	out.Fields = extractor.Extract(text.Combined())
	advance(model.StageExtracted,
		"employee", out.Fields.EmployeeName,
		"reported_wages", out.Fields.ReportedWages.StringFixed(2),
		"total_hours", out.Fields.TotalHours.String(),
	)

	out.Result = p.evaluator.Evaluate(out.Fields)
	advance(model.StageEvaluated,
		"calculated_wages", out.Result.CalculatedWages.StringFixed(2),
		"tip_credit_valid", out.Result.TipCreditValid,
		"overtime_valid", out.Result.OvertimeValid,
		"status", out.Result.Status,
	)

	rpt, err := p.reporter.Render(report.Data{
		Recipient: req.Email,
		Fields:    out.Fields,
		Result:    out.Result,
	})
	if err != nil {
		return fail(model.StageReported, err)
	}
	out.Report = rpt
	advance(model.StageReported, "bytes", rpt.Size)

	if p.archiver != nil {
		if key, err := p.archiver.Archive(ctx, req.RequestID, rpt); err != nil {
			log.Warn("报告归档失败", "error", err)
		} else {
			out.ArchivedAs = key
		}
	}

	if err := p.notifier.Send(ctx, req.Email, rpt); err != nil {
		if !p.options.ReturnReportOnFailure {
			_ = rpt.Cleanup()
			out.Report = nil
			return fail(model.StageNotified, err)
		}
		log.Warn("邮件投递失败，按策略仍返回报告", "error", err)
		out.DeliveryErr = err
	} else {
		advance(model.StageNotified, "to", req.Email)
	}

	advance(model.StageResponded, "duration", time.Since(start))
	return out, nil
}

func missingFields(req Request) []string {
	var fields []string
	if req.FileURL == "" {
		fields = append(fields, "file_url")
	}
	if req.Email == "" {
		fields = append(fields, "email")
	}
	return fields
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewTimeoutError("pipeline", "process", err)
	}
	return model.NewInternalError("pipeline", "request cancelled", err)
}
