package document

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PopplerRasterizer 调用 poppler-utils 的 pdftoppm
type PopplerRasterizer struct {
	command string
}

// NewPopplerRasterizer 创建pdftoppm栅格化器
func NewPopplerRasterizer(command string) *PopplerRasterizer {
	if command == "" {
		command = "pdftoppm"
	}
	return &PopplerRasterizer{command: command}
}

// Rasterize 实现Rasterizer
func (p *PopplerRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string, dpi int) ([]string, error) {
	bin, err := exec.LookPath(p.command)
	if err != nil {
		return nil, fmt.Errorf("%s not found, install poppler-utils: %w", p.command, err)
	}

	prefix := filepath.Join(outDir, "page")
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), pdfPath, prefix)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", p.command, err, strings.TrimSpace(stderr.String()))
	}

	return collectPages(outDir, "page")
}

// collectPages 按页号排序 pdftoppm 输出（page-1.png / page-01.png / page-001.png）
func collectPages(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.png"))
	if err != nil {
		return nil, err
	}

	type numbered struct {
		n    int
		path string
	}
	pages := make([]numbered, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".png")
		n, err := strconv.Atoi(strings.TrimPrefix(base, prefix+"-"))
		if err != nil {
			continue
		}
		pages = append(pages, numbered{n: n, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}
