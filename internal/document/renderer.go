// Package document 将PDF工资单渲染为逐页栅格图像
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// PageCounter 校验文档并返回页数
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// Rasterizer 将PDF文件逐页渲染为PNG，按页序返回文件路径
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string, dpi int) ([]string, error)
}

// PDFCPUCounter 基于pdfcpu的页数统计，宽松校验模式
type PDFCPUCounter struct{}

// PageCount 实现PageCounter
func (PDFCPUCounter) PageCount(data []byte) (count int, err error) {
	// pdfcpu 对畸形输入可能panic
	defer func() {
		if r := recover(); r != nil {
			count, err = 0, fmt.Errorf("panic while reading PDF: %v", r)
		}
	}()

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// Renderer 文档渲染器
type Renderer struct {
	counter    PageCounter
	rasterizer Rasterizer
	config     config.RendererConfig
	logger     *slog.Logger
}

// NewRenderer 创建文档渲染器
func NewRenderer(cfg config.RendererConfig, counter PageCounter, rasterizer Rasterizer, logger *slog.Logger) *Renderer {
	if counter == nil {
		counter = PDFCPUCounter{}
	}
	if rasterizer == nil {
		rasterizer = NewPopplerRasterizer(cfg.Command)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		counter:    counter,
		rasterizer: rasterizer,
		config:     cfg,
		logger:     logger,
	}
}

// Render 将文档字节渲染为页图像序列，临时目录在返回前删除
func (r *Renderer) Render(ctx context.Context, data []byte) (*model.Document, error) {
	if len(data) == 0 {
		return nil, model.NewDocumentDecodeError("empty document", nil)
	}

	pageCount, err := r.counter.PageCount(data)
	if err != nil {
		return nil, model.NewDocumentDecodeError("not a valid PDF document", err)
	}
	if pageCount == 0 {
		return nil, model.NewDocumentDecodeError("document has zero pages", nil)
	}

	workDir, err := os.MkdirTemp(r.config.TempDir, "paystub-render-*")
	if err != nil {
		return nil, model.NewInternalError("document", "create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			r.logger.Warn("清理渲染临时目录失败", "dir", workDir, "error", err)
		}
	}()

	input := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, model.NewInternalError("document", "stage input", err)
	}

	rctx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	paths, err := r.rasterizer.Rasterize(rctx, input, workDir, r.config.DPI)
	if err != nil {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return nil, model.NewTimeoutError("document", "rasterize", err)
		}
		return nil, model.NewDocumentDecodeError("rasterize pages", err)
	}
	if len(paths) == 0 {
		return nil, model.NewDocumentDecodeError("document has zero pages", nil)
	}

	doc := &model.Document{Pages: make([]model.Page, 0, len(paths))}
	for i, p := range paths {
		page, err := r.loadPage(i, p)
		if err != nil {
			return nil, model.NewDocumentDecodeError(fmt.Sprintf("decode page %d", i+1), err)
		}
		doc.Pages = append(doc.Pages, page)
	}

	r.logger.Debug("文档渲染完成", "pages", len(doc.Pages), "declared_pages", pageCount, "dpi", r.config.DPI)
	return doc, nil
}

func (r *Renderer) loadPage(index int, path string) (model.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Page{}, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.Page{}, err
	}

	if limit := r.config.MaxDimension; limit > 0 && (cfg.Width > limit || cfg.Height > limit) {
		return downscale(index, data, limit)
	}

	return model.Page{Index: index, Width: cfg.Width, Height: cfg.Height, PNG: data}, nil
}

// downscale 等比缩放到最长边不超过limit
func downscale(index int, data []byte, limit int) (model.Page, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return model.Page{}, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = h * limit / w
		w = limit
	} else {
		w = w * limit / h
		h = limit
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return model.Page{}, err
	}
	return model.Page{Index: index, Width: w, Height: h, PNG: buf.Bytes()}, nil
}
