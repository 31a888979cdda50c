// ocr-extract 对本地PDF执行渲染与OCR，打印每页预览并写出合并文本
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/document"
	"github.com/freedkr/paycheck/internal/logging"
	"github.com/freedkr/paycheck/internal/model"
	"github.com/freedkr/paycheck/internal/ocr"
)

const previewRunes = 500

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	outPath := flag.String("out", "ocr_output.txt", "合并文本输出路径")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [-config path] [-out ocr_output.txt] file.pdf\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), *configPath, flag.Arg(0), *outPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "处理失败: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, pdfPath, outPath string, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.App)

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}

	renderer := document.NewRenderer(cfg.Renderer, document.PDFCPUCounter{},
		document.NewPopplerRasterizer(cfg.Renderer.Command), logger)
	doc, err := renderer.Render(ctx, data)
	if err != nil {
		return err
	}

	recognizer := ocr.NewRecognizer(ocr.NewTesseractEngine(cfg.OCR, cfg.Renderer.DPI), cfg.OCR, logger)
	text, err := recognizer.Recognize(ctx, doc)
	if err != nil {
		return err
	}

	printPreview(stdout, text)

	if err := os.WriteFile(outPath, []byte(text.Combined()), 0o644); err != nil {
		return fmt.Errorf("写出文本失败: %w", err)
	}
	fmt.Fprintf(stdout, "已写出 %s\n", outPath)
	return nil
}

func printPreview(w io.Writer, text *model.ExtractedText) {
	for _, page := range text.Pages {
		fmt.Fprintf(w, "--- Page %d ---\n", page.Index+1)
		if page.Failed {
			fmt.Fprintln(w, "[recognition failed]")
			continue
		}
		fmt.Fprintln(w, preview(page.Text, previewRunes))
	}
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
