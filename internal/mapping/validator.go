package mapping

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ComplianceStatus is the aggregate outcome of the legal-compliance rules.
type ComplianceStatus string

const (
	CompliancePassed  ComplianceStatus = "passed"
	ComplianceFailed  ComplianceStatus = "failed"
	ComplianceUnknown ComplianceStatus = "unknown"
)

// Issue is one field-scoped validation finding.
type Issue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationReport is the structured result of validating one target
// record. Immutable after construction.
type ValidationReport struct {
	Errors                []Issue          `json:"errors"`
	Warnings              []Issue          `json:"warnings"`
	LegalComplianceStatus ComplianceStatus `json:"legal_compliance_status"`
	BusinessRulesPassed   bool             `json:"business_rules_passed"`
	FieldCompletionRate   float64          `json:"field_completion_rate"`
	IsValid               bool             `json:"is_valid"`
}

// Validator applies a configuration's rule set to a mapped target record.
// It never fails to produce a report: every data problem becomes a report
// entry, so a reviewer gets one coherent picture of a messy record.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate produces the validation report for one target record.
func (v *Validator) Validate(target *TargetRecord, cfg *Configuration) *ValidationReport {
	report := &ValidationReport{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	if target == nil {
		report.Errors = append(report.Errors, Issue{
			Rule:    "record",
			Message: "no target record to validate",
		})
		report.LegalComplianceStatus = ComplianceUnknown
		return report
	}

	v.checkRequired(target, cfg, report)
	v.checkSentinels(target, report)
	report.LegalComplianceStatus = v.checkLegal(target, cfg, report)
	report.BusinessRulesPassed = v.checkCrossField(target, cfg, report)
	report.FieldCompletionRate = completionRate(target, cfg)
	report.IsValid = len(report.Errors) == 0 && report.LegalComplianceStatus != ComplianceFailed

	return report
}

// checkRequired reports every required target field that is absent or
// empty. Fields whose transformation failed are reported by the sentinel
// check instead, so a bad value never produces two errors.
func (v *Validator) checkRequired(target *TargetRecord, cfg *Configuration, report *ValidationReport) {
	for _, name := range cfg.Rules.RequiredFields {
		f, ok := target.Fields[name]
		if ok && f.Failed {
			continue
		}
		if !ok || f.Value == "" {
			report.Errors = append(report.Errors, Issue{
				Field:   name,
				Rule:    "required",
				Message: fmt.Sprintf("required field %q is empty", name),
			})
		}
	}
}

// checkSentinels turns every transformation-failure marker into an error
// referencing the original source fields, so the report is actionable
// without re-running the mapper.
func (v *Validator) checkSentinels(target *TargetRecord, report *ValidationReport) {
	for _, name := range target.FieldOrder {
		f := target.Fields[name]
		if !f.Failed {
			continue
		}
		report.Errors = append(report.Errors, Issue{
			Field: name,
			Rule:  "transformation",
			Message: fmt.Sprintf("transformation of %q from source fields [%s] failed: %s",
				name, strings.Join(f.Sources, ", "), f.FailureReason),
		})
	}
}

// checkLegal evaluates the legal-compliance rules. Any failing rule makes
// the status failed; rules whose inputs are missing or unusable leave it
// unknown — compliance is never asserted true by omission.
func (v *Validator) checkLegal(target *TargetRecord, cfg *Configuration, report *ValidationReport) ComplianceStatus {
	if len(cfg.Rules.LegalRules) == 0 {
		return CompliancePassed
	}

	anyFailed := false
	anyUnknown := false

	for _, rule := range cfg.Rules.LegalRules {
		f, ok := target.Fields[rule.Field]
		if !ok || f.Failed || (f.Value == "" && rule.Check != CheckNotEmpty) {
			anyUnknown = true
			continue
		}

		pass, evaluated := v.evalLegal(rule.Check, f.Value)
		if !evaluated {
			anyUnknown = true
			continue
		}
		if !pass {
			anyFailed = true
			report.Errors = append(report.Errors, Issue{
				Field:   rule.Field,
				Rule:    rule.Name,
				Message: fmt.Sprintf("legal compliance rule %q failed for field %q (value %q)", rule.Name, rule.Field, f.Value),
			})
		}
	}

	switch {
	case anyFailed:
		return ComplianceFailed
	case anyUnknown:
		return ComplianceUnknown
	default:
		return CompliancePassed
	}
}

func (v *Validator) evalLegal(check LegalCheck, value string) (pass, evaluated bool) {
	switch check {
	case CheckNotEmpty:
		return value != "", true
	case CheckPositiveAmount:
		amount, err := ParseAmount(value)
		if err != nil {
			return false, false
		}
		return amount > 0, true
	case CheckNotFutureDate:
		t, err := ParseDate(value)
		if err != nil {
			return false, false
		}
		today := v.now().Truncate(24 * time.Hour)
		return !t.After(today), true
	default:
		return false, false
	}
}

// checkCrossField evaluates the cross-field consistency rules. A rule only
// runs when every referenced field is present and usable; a failing soft
// rule warns, a failing hard rule errors. Returns whether every evaluated
// rule passed.
func (v *Validator) checkCrossField(target *TargetRecord, cfg *Configuration, report *ValidationReport) bool {
	allPassed := true

	for _, rule := range cfg.Rules.CrossFieldRules {
		values := make([]string, 0, len(rule.Fields))
		usable := true
		for _, name := range rule.Fields {
			f, ok := target.Fields[name]
			if !ok || f.Failed || f.Value == "" {
				usable = false
				break
			}
			values = append(values, f.Value)
		}
		if !usable {
			continue
		}

		pass, evaluated := evalCrossField(rule, values)
		if !evaluated {
			continue
		}
		if pass {
			continue
		}

		allPassed = false
		issue := Issue{
			Field:   rule.Fields[0],
			Rule:    rule.Name,
			Message: fmt.Sprintf("cross-field rule %q failed for fields [%s]", rule.Name, strings.Join(rule.Fields, ", ")),
		}
		if rule.Hard {
			report.Errors = append(report.Errors, issue)
		} else {
			report.Warnings = append(report.Warnings, issue)
		}
	}

	return allPassed
}

func evalCrossField(rule CrossFieldRule, values []string) (pass, evaluated bool) {
	switch rule.Check {
	case CheckDateNotBefore, CheckDateNotAfter:
		a, errA := ParseDate(values[0])
		b, errB := ParseDate(values[1])
		if errA != nil || errB != nil {
			return false, false
		}
		if rule.Check == CheckDateNotBefore {
			return !a.Before(b), true
		}
		return !a.After(b), true
	case CheckAmountMinRatio:
		a, errA := ParseAmount(values[0])
		b, errB := ParseAmount(values[1])
		if errA != nil || errB != nil || b == 0 {
			return false, false
		}
		return a >= rule.Ratio*b, true
	default:
		return false, false
	}
}

// completionRate is the percentage of declared target fields that carry a
// usable non-empty value, rounded to one decimal point. It is computed
// over all declared fields regardless of required/optional status.
func completionRate(target *TargetRecord, cfg *Configuration) float64 {
	if len(cfg.Fields) == 0 {
		return 0
	}

	populated := 0
	for i := range cfg.Fields {
		if f, ok := target.Fields[cfg.Fields[i].Name]; ok && !f.Failed && f.Value != "" {
			populated++
		}
	}

	rate := float64(populated) / float64(len(cfg.Fields)) * 100
	return math.Round(rate*10) / 10
}
