package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// TesseractEngine 基于gosseract的识别引擎，每页一个客户端
type TesseractEngine struct {
	languages      []string
	tessdataPrefix string
	dpi            int
	clientFactory  func() *gosseract.Client
}

// NewTesseractEngine 创建Tesseract引擎
func NewTesseractEngine(cfg config.OCRConfig, dpi int) *TesseractEngine {
	return &TesseractEngine{
		languages:      cfg.Languages,
		tessdataPrefix: cfg.TessdataPrefix,
		dpi:            dpi,
		clientFactory:  gosseract.NewClient,
	}
}

// Name 引擎名称
func (e *TesseractEngine) Name() string { return "tesseract" }

type recognition struct {
	text string
	conf float64
	err  error
}

// Recognize 识别单页。gosseract不支持取消，超时后放弃等待结果。
func (e *TesseractEngine) Recognize(ctx context.Context, page model.Page) (string, float64, error) {
	done := make(chan recognition, 1)
	go func() {
		text, conf, err := e.recognize(page)
		done <- recognition{text: text, conf: conf, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	case res := <-done:
		return res.text, res.conf, res.err
	}
}

func (e *TesseractEngine) recognize(page model.Page) (string, float64, error) {
	c := e.clientFactory()
	defer c.Close()

	if e.tessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", 0, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", 0, fmt.Errorf("set languages: %w", err)
		}
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.dpi)); err != nil {
			return "", 0, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(page.PNG); err != nil {
		return "", 0, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", 0, fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), averageConfidence(c), nil
}

func averageConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
