package compliance

import (
	"github.com/shopspring/decimal"

	"github.com/freedkr/paycheck/internal/model"
)

// Evaluator 合规评估器，纯函数：相同字段必然得到相同结果
type Evaluator struct {
	rules Rules
}

// NewEvaluator 创建评估器
func NewEvaluator(rules Rules) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate 执行全部检查
func (e *Evaluator) Evaluate(fields model.StructuredFields) model.ComplianceResult {
	calculated := e.rules.Wage.Calculate(fields)
	return model.ComplianceResult{
		CalculatedWages: calculated,
		TipCreditValid:  TipCreditValid(fields.ReportedWages, e.rules.TipCreditMinimum),
		OvertimeValid:   OvertimeValid(fields.TotalHours, e.rules.OvertimeMaxHours),
		Status:          WageStatus(fields.ReportedWages, calculated, e.rules.MatchTolerance),
	}
}

// TipCreditValid 实发工资不低于最低线
func TipCreditValid(reported, minimum decimal.Decimal) bool {
	return reported.GreaterThanOrEqual(minimum)
}

// OvertimeValid 工时不超过上限
func OvertimeValid(hours, maxHours decimal.Decimal) bool {
	return hours.LessThanOrEqual(maxHours)
}

// WageStatus 差额在容差内视为一致
func WageStatus(reported, calculated, tolerance decimal.Decimal) model.Status {
	if reported.Sub(calculated).Abs().LessThanOrEqual(tolerance) {
		return model.StatusMatch
	}
	return model.StatusMismatch
}
