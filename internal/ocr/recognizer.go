// Package ocr 对渲染后的页面逐页执行文字识别
package ocr

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// Engine 单页识别引擎
type Engine interface {
	Name() string
	Recognize(ctx context.Context, page model.Page) (text string, confidence float64, err error)
}

// Recognizer 文档级识别：页间隔离，单页失败不影响其他页
type Recognizer struct {
	engine Engine
	config config.OCRConfig
	logger *slog.Logger
}

// NewRecognizer 创建识别器
func NewRecognizer(engine Engine, cfg config.OCRConfig, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{engine: engine, config: cfg, logger: logger}
}

// Recognize 识别全部页面。单页失败时该页文本为空并标记Failed；
// 整体超时返回TimeoutError。
func (r *Recognizer) Recognize(ctx context.Context, doc *model.Document) (*model.ExtractedText, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	result := &model.ExtractedText{
		Pages:  make([]model.PageText, doc.PageCount()),
		Errors: model.NewErrorList(),
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	limit := r.config.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range doc.Pages {
		page := doc.Pages[i]
		g.Go(func() error {
			pt := r.recognizePage(ctx, page)
			mu.Lock()
			defer mu.Unlock()
			result.Pages[i] = pt.text
			result.Errors.Add(pt.err)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewTimeoutError("ocr", "recognize", err)
		}
		return nil, model.NewInternalError("ocr", "recognition cancelled", err)
	}

	if result.Errors.HasError() {
		r.logger.Warn("部分页面识别失败",
			"engine", r.engine.Name(),
			"failed_pages", result.FailedPages(),
			"error", result.Errors.Error())
	}
	return result, nil
}

type pageOutcome struct {
	text model.PageText
	err  error
}

func (r *Recognizer) recognizePage(ctx context.Context, page model.Page) pageOutcome {
	out := pageOutcome{text: model.PageText{Index: page.Index}}

	pctx := ctx
	if r.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, r.config.PageTimeout)
		defer cancel()
	}

	text, conf, err := r.engine.Recognize(pctx, page)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = model.NewTimeoutError("ocr", "page", err)
		}
		out.text.Failed = true
		out.err = model.NewRecognitionError(page.Index, err)
		r.logger.Warn("页面识别失败", "page", page.Index+1, "error", err)
		return out
	}

	out.text.Text = text
	out.text.Confidence = conf
	r.logger.Debug("页面识别完成", "page", page.Index+1, "chars", len(text), "confidence", conf)
	return out
}
