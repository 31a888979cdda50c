package model

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// 字段缺失时使用的默认值
const (
	DefaultEmployeeName = "Unknown Employee"
)

// Stage 请求处理状态
type Stage string

// 线性状态机，任一阶段失败直接进入Failed
const (
	StageReceived  Stage = "received"
	StageValidated Stage = "validated"
	StageRendered  Stage = "rendered"
	StageExtracted Stage = "extracted"
	StageEvaluated Stage = "evaluated"
	StageReported  Stage = "reported"
	StageNotified  Stage = "notified"
	StageResponded Stage = "responded"
	StageFailed    Stage = "failed"
)

// Page 单页栅格图像
type Page struct {
	Index  int    `json:"index"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    []byte `json:"-"`
}

// Document 按页序排列的文档，生成后不再修改
type Document struct {
	Pages []Page `json:"pages"`
}

// PageCount 页数
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// PageText 单页识别结果
type PageText struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	// Failed 识别失败时为true，此时Text为空
	Failed bool `json:"failed"`
}

// ExtractedText 全文识别结果
type ExtractedText struct {
	Pages  []PageText `json:"pages"`
	Errors *ErrorList `json:"-"`
}

// Combined 按页序以换行拼接全部文本
func (t *ExtractedText) Combined() string {
	if t == nil {
		return ""
	}
	parts := make([]string, len(t.Pages))
	for i, p := range t.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// FailedPages 识别失败的页码（从0开始）
func (t *ExtractedText) FailedPages() []int {
	var failed []int
	for _, p := range t.Pages {
		if p.Failed {
			failed = append(failed, p.Index)
		}
	}
	return failed
}

// StructuredFields 从工资单中提取的结构化字段，不存在缺失字段
type StructuredFields struct {
	EmployeeName  string          `json:"employee_name"`
	ReportedWages decimal.Decimal `json:"reported_wages"`
	TotalHours    decimal.Decimal `json:"total_hours"`
}

// Status 工资核对状态
type Status string

const (
	StatusMatch    Status = "Match"
	StatusMismatch Status = "Mismatch"
)

// ComplianceResult 合规检查结果
type ComplianceResult struct {
	CalculatedWages decimal.Decimal `json:"calculated_wages"`
	TipCreditValid  bool            `json:"tip_credit_valid"`
	OvertimeValid   bool            `json:"overtime_valid"`
	Status          Status          `json:"status"`
}

// Report 生成的报告文件及其收件地址
type Report struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Recipient string `json:"recipient"`
}

// Bytes 读取报告内容
func (r *Report) Bytes() ([]byte, error) {
	return os.ReadFile(r.Path)
}

// Cleanup 删除临时报告文件
func (r *Report) Cleanup() error {
	if r == nil || r.Path == "" {
		return nil
	}
	if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
