// Package compliance 对提取的工资字段执行合规检查
package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// WageRule 根据提取字段重新计算应发工资
type WageRule interface {
	Name() string
	Calculate(fields model.StructuredFields) decimal.Decimal
}

// MultiplierRule 应发工资 = 实发工资 × Factor
type MultiplierRule struct {
	Factor decimal.Decimal
}

// Name 规则名称
func (r MultiplierRule) Name() string { return "multiplier" }

// Calculate 实现WageRule
func (r MultiplierRule) Calculate(fields model.StructuredFields) decimal.Decimal {
	return fields.ReportedWages.Mul(r.Factor).Round(2)
}

// HourlyRule 按工时计算：常规工时 × Rate + 加班工时 × Rate × OvertimeMultiplier
type HourlyRule struct {
	Rate               decimal.Decimal
	OvertimeThreshold  decimal.Decimal
	OvertimeMultiplier decimal.Decimal
}

// Name 规则名称
func (r HourlyRule) Name() string { return "hourly" }

// Calculate 实现WageRule
func (r HourlyRule) Calculate(fields model.StructuredFields) decimal.Decimal {
	regular := decimal.Min(fields.TotalHours, r.OvertimeThreshold)
	overtime := fields.TotalHours.Sub(r.OvertimeThreshold)
	if overtime.IsNegative() {
		overtime = decimal.Zero
	}
	pay := regular.Mul(r.Rate).Add(overtime.Mul(r.Rate).Mul(r.OvertimeMultiplier))
	return pay.Round(2)
}

// Rules 合规阈值
type Rules struct {
	Wage             WageRule
	TipCreditMinimum decimal.Decimal
	OvertimeMaxHours decimal.Decimal
	MatchTolerance   decimal.Decimal
}

// RulesFromConfig 解析配置中的规则参数
func RulesFromConfig(cfg config.ComplianceConfig) (Rules, error) {
	parse := func(name, value string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("compliance.%s: %w", name, err)
		}
		return d, nil
	}

	var rules Rules
	var err error
	if rules.TipCreditMinimum, err = parse("tip_credit_minimum", cfg.TipCreditMinimum); err != nil {
		return Rules{}, err
	}
	if rules.OvertimeMaxHours, err = parse("overtime_max_hours", cfg.OvertimeMaxHours); err != nil {
		return Rules{}, err
	}
	if rules.MatchTolerance, err = parse("match_tolerance", cfg.MatchTolerance); err != nil {
		return Rules{}, err
	}

	switch cfg.WageRule {
	case "", "multiplier":
		factor, err := parse("wage_multiplier", cfg.WageMultiplier)
		if err != nil {
			return Rules{}, err
		}
		rules.Wage = MultiplierRule{Factor: factor}
	case "hourly":
		rate, err := parse("hourly_rate", cfg.HourlyRate)
		if err != nil {
			return Rules{}, err
		}
		ot, err := parse("overtime_multiplier", cfg.OvertimeMultiplier)
		if err != nil {
			return Rules{}, err
		}
		rules.Wage = HourlyRule{Rate: rate, OvertimeThreshold: rules.OvertimeMaxHours, OvertimeMultiplier: ot}
	default:
		return Rules{}, fmt.Errorf("compliance.wage_rule: unknown rule %q", cfg.WageRule)
	}
	return rules, nil
}

// DefaultRules 与默认配置等价的规则
func DefaultRules() Rules {
	return Rules{
		Wage:             MultiplierRule{Factor: decimal.NewFromInt(1)},
		TipCreditMinimum: decimal.NewFromInt(100),
		OvertimeMaxHours: decimal.NewFromInt(40),
		MatchTolerance:   decimal.RequireFromString("0.005"),
	}
}
