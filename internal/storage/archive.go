package storage

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/freedkr/paycheck/internal/model"
)

// ReportArchiver 将生成的报告归档到对象存储
type ReportArchiver struct {
	store  ObjectStore
	prefix string
}

// NewReportArchiver 创建报告归档器
func NewReportArchiver(store ObjectStore, prefix string) *ReportArchiver {
	return &ReportArchiver{store: store, prefix: prefix}
}

// Archive 上传报告，返回对象名
func (a *ReportArchiver) Archive(ctx context.Context, requestID string, report *model.Report) (string, error) {
	f, err := os.Open(report.Path)
	if err != nil {
		return "", fmt.Errorf("打开报告失败: %w", err)
	}
	defer f.Close()

	objectName := path.Join(a.prefix, requestID, path.Base(report.Path))
	if err := a.store.UploadFile(ctx, objectName, f, report.Size, "application/pdf"); err != nil {
		return "", err
	}
	return objectName, nil
}
