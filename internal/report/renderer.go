// Package report 生成工资单合规报告PDF
package report

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// Title 报告标题
const Title = "Pay Stub Compliance Report"

// Data 报告输入
type Data struct {
	Recipient string
	Fields    model.StructuredFields
	Result    model.ComplianceResult
}

// Content 报告的文本内容，已转写为ASCII
type Content struct {
	Title          string
	EmployeeLine   string
	ColumnHeaders  [2]string
	ColumnValues   [2]string
	ComplianceRows [][2]string
	StatusLine     string
}

// Compose 生成报告文本
func Compose(data Data) Content {
	return Content{
		Title:         Title,
		EmployeeLine:  "Employee: " + Transliterate(data.Fields.EmployeeName),
		ColumnHeaders: [2]string{"Expected Wages", "Reported Wages"},
		ColumnValues: [2]string{
			FormatMoney(data.Result.CalculatedWages),
			FormatMoney(data.Fields.ReportedWages),
		},
		ComplianceRows: [][2]string{
			{"Tip Credit Compliance", verdict(data.Result.TipCreditValid)},
			{"Overtime Compliance", verdict(data.Result.OvertimeValid)},
		},
		StatusLine: "Status: " + StatusText(data.Result.Status),
	}
}

// StatusText 状态文案
func StatusText(s model.Status) string {
	if s == model.StatusMatch {
		return "Wages Match"
	}
	return "Mismatch Detected"
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// FormatMoney 格式化为 $1,234.56
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + b.String() + "." + frac
}

// Renderer 报告渲染器
type Renderer struct {
	config config.ReportConfig
	logger *slog.Logger
}

// NewRenderer 创建报告渲染器
func NewRenderer(cfg config.ReportConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{config: cfg, logger: logger}
}

// Render 生成PDF并写入临时文件；产物小于MinBytes视为损坏
func (r *Renderer) Render(data Data) (*model.Report, error) {
	content := Compose(data)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.config.Compress)
	pdf.SetTitle(content.Title, false)
	pdf.SetCreator("paycheck", false)
	pdf.AddPage()

	if logo, format := r.logo(); logo != "" {
		pdf.ImageOptions(logo, 10, 8, 30, 0, false, fpdf.ImageOptions{ImageType: format, ReadDpi: true}, 0, "")
		if pdf.Err() {
			r.logger.Warn("logo无法嵌入，报告将不含logo", "path", logo, "error", pdf.Error())
			pdf.ClearError()
		} else {
			pdf.SetY(40)
		}
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, content.Title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, content.EmployeeLine, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(95, 10, content.ColumnHeaders[0], "1", 0, "C", true, 0, "")
	pdf.CellFormat(95, 10, content.ColumnHeaders[1], "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(95, 10, content.ColumnValues[0], "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 10, content.ColumnValues[1], "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	for _, row := range content.ComplianceRows {
		pdf.CellFormat(95, 10, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 10, row[1], "1", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, content.StatusLine, "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, model.NewRenderError("layout report", err)
	}
	return r.write(pdf, data.Recipient)
}

func (r *Renderer) write(pdf *fpdf.Fpdf, recipient string) (*model.Report, error) {
	f, err := os.CreateTemp(r.config.OutputDir, "paystub_report-*.pdf")
	if err != nil {
		return nil, model.NewRenderError("create report file", err)
	}
	report := &model.Report{Path: f.Name(), Recipient: recipient}

	if err := pdf.Output(f); err != nil {
		f.Close()
		_ = report.Cleanup()
		return nil, model.NewRenderError("write report", err)
	}
	if err := f.Close(); err != nil {
		_ = report.Cleanup()
		return nil, model.NewRenderError("finalize report", err)
	}

	if err := r.check(report); err != nil {
		_ = report.Cleanup()
		return nil, err
	}
	return report, nil
}

// check 校验产物大小
func (r *Renderer) check(report *model.Report) error {
	info, err := os.Stat(report.Path)
	if err != nil {
		return model.NewRenderError("stat report", err)
	}
	report.Size = info.Size()
	if report.Size < r.config.MinBytes {
		return model.NewRenderError(fmt.Sprintf("report is %d bytes, below minimum %d", report.Size, r.config.MinBytes), nil)
	}
	return nil
}

// logo 返回可用的logo路径及图片格式，缺失或无法解码时返回空串
func (r *Renderer) logo() (string, string) {
	path := r.config.LogoPath
	if path == "" {
		return "", ""
	}

	f, err := os.Open(path)
	if err != nil {
		r.logger.Warn("logo不可用，报告将不含logo", "path", path, "error", err)
		return "", ""
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		r.logger.Warn("logo无法解码，报告将不含logo", "path", path, "error", err)
		return "", ""
	}
	return path, format
}
