// Package extractor 从OCR文本中按标签提取工资单字段
package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/freedkr/paycheck/internal/model"
)

// 标签区分大小写，必须与工资单上的字面完全一致
var (
	employeePattern = regexp.MustCompile(`EMPLOYEE\s+([\p{L}\p{M}\p{N}_ ]+)`)
	netPayPattern   = regexp.MustCompile(`NET PAY:\s*\$([\d,]+(?:\.\d+)?)`)
	hoursPattern    = regexp.MustCompile(`Total Hours:\s*(\d+(?:\.\d+)?)`)
)

// Extract 提取结构化字段，任何字段缺失都使用默认值，不返回错误
func Extract(text string) model.StructuredFields {
	return model.StructuredFields{
		EmployeeName:  EmployeeName(text),
		ReportedWages: ReportedWages(text),
		TotalHours:    TotalHours(text),
	}
}

// EmployeeName 员工姓名，默认 "Unknown Employee"
func EmployeeName(text string) string {
	m := employeePattern.FindStringSubmatch(text)
	if m == nil {
		return model.DefaultEmployeeName
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return model.DefaultEmployeeName
	}
	return name
}

// ReportedWages 实发工资，去掉千分位后解析，默认0.00
func ReportedWages(text string) decimal.Decimal {
	m := netPayPattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	return parseDecimal(strings.ReplaceAll(m[1], ",", ""))
}

// TotalHours 总工时，默认0.00
func TotalHours(text string) decimal.Decimal {
	m := hoursPattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	return parseDecimal(m[1])
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
