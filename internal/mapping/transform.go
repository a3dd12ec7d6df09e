package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceRecord is the wide, denormalized input record: a flat mapping from
// source field name to scalar value. Absent data is simply an absent or
// empty entry, never an error.
type SourceRecord map[string]any

// Lookup returns the stringified value of a source field. ok is false when
// the field is absent, nil, or empty.
func (r SourceRecord) Lookup(name string) (string, bool) {
	v, present := r[name]
	if !present || v == nil {
		return "", false
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case time.Time:
		s = t.Format(dateLayout)
	default:
		s = fmt.Sprintf("%v", t)
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// Truthy reports whether a source field is present and not a recognised
// false value. A present non-boolean value counts as true, so predicates
// like "co_buyer is present" work on plain text fields.
func (r SourceRecord) Truthy(name string) bool {
	s, ok := r.Lookup(name)
	if !ok {
		return false
	}
	switch strings.ToLower(s) {
	case "false", "no", "n", "0", "off":
		return false
	}
	return true
}

// Result is the outcome of one transformation. Failed marks malformed
// source data; the Engine never raises for data-shape problems, it returns
// a failed Result for the Validator to report.
type Result struct {
	Value  string
	Failed bool
	Reason string
}

func failed(reason string) Result {
	return Result{Failed: true, Reason: reason}
}

// Engine interprets the closed set of transformation kinds over a source
// record. All methods are pure; a shared Engine is safe for concurrent use.
type Engine struct{}

// NewEngine creates a transformation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply produces the target value for one field mapping. Missing source
// data yields an empty value; malformed data yields a failed Result.
func (e *Engine) Apply(fm *FieldMapping, rec SourceRecord) Result {
	return e.apply(fm.Transform, fm.Sources, &fm.Params, rec)
}

func (e *Engine) apply(kind TransformKind, sources []string, params *TransformParams, rec SourceRecord) Result {
	switch kind {
	case TransformDirect:
		return e.direct(sources, rec)
	case TransformConcatenate:
		return e.concatenate(sources, params, rec)
	case TransformFormatCurrency:
		return e.formatCurrency(sources, params, rec)
	case TransformFormatDate:
		return e.formatDate(sources, rec)
	case TransformTemplate:
		return e.template(params, rec)
	case TransformConditional:
		return e.conditional(params, rec)
	default:
		// Unreachable for loaded configurations; kinds are checked at load.
		return failed(fmt.Sprintf("unknown transformation kind %q", kind))
	}
}

func (e *Engine) direct(sources []string, rec SourceRecord) Result {
	if len(sources) == 0 {
		return Result{}
	}
	v, _ := rec.Lookup(sources[0])
	return Result{Value: v}
}

func (e *Engine) concatenate(sources []string, params *TransformParams, rec SourceRecord) Result {
	sep := params.Separator
	if sep == "" {
		sep = " "
	}

	// Absent fields are skipped rather than rendered as empty slots, so
	// "first + middle + last" degrades gracefully without double separators.
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		if v, ok := rec.Lookup(src); ok {
			parts = append(parts, v)
		}
	}
	return Result{Value: strings.Join(parts, sep)}
}

func (e *Engine) formatCurrency(sources []string, params *TransformParams, rec SourceRecord) Result {
	raw, ok := rec.Lookup(sources[0])
	if !ok {
		return Result{}
	}

	amount, err := ParseAmount(raw)
	if err != nil {
		return failed(fmt.Sprintf("cannot parse %q as an amount", raw))
	}

	symbol := params.Symbol
	if symbol == "" {
		symbol = "$"
	}
	return Result{Value: FormatAmount(symbol, amount)}
}

func (e *Engine) formatDate(sources []string, rec SourceRecord) Result {
	raw, ok := rec.Lookup(sources[0])
	if !ok {
		return Result{}
	}

	t, err := ParseDate(raw)
	if err != nil {
		return failed(fmt.Sprintf("cannot parse %q as a date", raw))
	}
	return Result{Value: t.Format(dateLayout)}
}

func (e *Engine) template(params *TransformParams, rec SourceRecord) Result {
	// Missing placeholders render as empty substrings rather than failing
	// the whole template.
	anyResolved := false
	hasPlaceholders := false
	out := templatePlaceholders.ReplaceAllStringFunc(params.Template, func(m string) string {
		hasPlaceholders = true
		name := m[1 : len(m)-1]
		v, ok := rec.Lookup(name)
		if ok {
			anyResolved = true
		}
		return v
	})

	// A template whose placeholders all came up empty is empty data, not a
	// string of leftover punctuation.
	if hasPlaceholders && !anyResolved {
		return Result{}
	}
	return Result{Value: strings.TrimSpace(out)}
}

func (e *Engine) conditional(params *TransformParams, rec SourceRecord) Result {
	rule := params.Else
	if rec.Truthy(params.When) {
		rule = params.Then
	}
	if rule == nil {
		return Result{}
	}
	return e.apply(rule.Transform, rule.Sources, &rule.Params, rec)
}

// dateLayout is the canonical rendering of every date field.
const dateLayout = "2006-01-02"

// dateLayouts are the representations ParseDate tolerates.
var dateLayouts = []string{
	dateLayout,
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseDate parses a date from any tolerated representation.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// ParseAmount parses a numeric amount, tolerating a sign, a leading
// currency symbol and thousands separators.
func ParseAmount(value string) (float64, error) {
	cleaned := strings.TrimSpace(value)
	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimLeft(cleaned, "$€£ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if negative {
		amount = -amount
	}
	return amount, nil
}

// FormatAmount renders an amount with the given symbol and thousands
// grouping. Whole amounts render without decimals; fractional amounts
// render with two.
func FormatAmount(symbol string, amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	decimals := 0
	if amount != float64(int64(amount)) {
		decimals = 2
	}
	fixed := strconv.FormatFloat(amount, 'f', decimals, 64)

	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	return sign + symbol + b.String() + fracPart
}
