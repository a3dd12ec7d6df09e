package mapping

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// TransformKind identifies one of the closed set of transformation
// interpreters understood by the Engine.
type TransformKind string

const (
	TransformDirect         TransformKind = "direct"
	TransformConcatenate    TransformKind = "concatenate"
	TransformFormatCurrency TransformKind = "format_currency"
	TransformFormatDate     TransformKind = "format_date"
	TransformTemplate       TransformKind = "template"
	TransformConditional    TransformKind = "conditional"
)

// FieldType classifies a target field for validation purposes.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldCurrency FieldType = "currency"
	FieldDate     FieldType = "date"
	FieldBoolean  FieldType = "boolean"
	FieldEnum     FieldType = "enum"
)

// LegalCheck names a single-field legal-compliance predicate.
type LegalCheck string

const (
	CheckPositiveAmount LegalCheck = "positive_amount"
	CheckNotFutureDate  LegalCheck = "not_future_date"
	CheckNotEmpty       LegalCheck = "not_empty"
)

// CrossFieldCheck names a multi-field consistency predicate.
type CrossFieldCheck string

const (
	CheckDateNotBefore  CrossFieldCheck = "date_not_before"
	CheckDateNotAfter   CrossFieldCheck = "date_not_after"
	CheckAmountMinRatio CrossFieldCheck = "amount_min_ratio"
)

// TransformParams carries the kind-specific parameters of a FieldMapping.
type TransformParams struct {
	Separator string   `yaml:"separator,omitempty"`
	Symbol    string   `yaml:"symbol,omitempty"`
	Template  string   `yaml:"template,omitempty"`
	When      string   `yaml:"when,omitempty"`
	Then      *SubRule `yaml:"then,omitempty"`
	Else      *SubRule `yaml:"else,omitempty"`
}

// SubRule is a nested transformation rule used by conditional mappings.
// A sub-rule may not itself be conditional.
type SubRule struct {
	Transform TransformKind   `yaml:"transform"`
	Sources   []string        `yaml:"sources"`
	Params    TransformParams `yaml:"params"`
}

// FieldMapping declares how one target field is derived from the source
// record.
type FieldMapping struct {
	Name      string          `yaml:"name"`
	Sources   []string        `yaml:"sources"`
	Transform TransformKind   `yaml:"transform"`
	Params    TransformParams `yaml:"params"`
	Required  bool            `yaml:"required"`
	Type      FieldType       `yaml:"type"`
}

// LegalRule is a named regulatory predicate over one target field.
type LegalRule struct {
	Name  string     `yaml:"name"`
	Field string     `yaml:"field"`
	Check LegalCheck `yaml:"check"`
}

// CrossFieldRule is a named consistency predicate over two target fields.
// Hard rules fail validation; soft rules only warn.
type CrossFieldRule struct {
	Name   string          `yaml:"name"`
	Fields []string        `yaml:"fields"`
	Check  CrossFieldCheck `yaml:"check"`
	Ratio  float64         `yaml:"ratio,omitempty"`
	Hard   bool            `yaml:"hard"`
}

// ValidationRuleSet groups every validation rule of a configuration.
type ValidationRuleSet struct {
	RequiredFields  []string         `yaml:"required_fields"`
	LegalRules      []LegalRule      `yaml:"legal_compliance"`
	CrossFieldRules []CrossFieldRule `yaml:"cross_field"`
}

// Configuration is the immutable, fully validated description of a target
// form: every field mapping in declaration order plus the validation rules.
// Once loaded it is safe to share across concurrent mapping calls.
type Configuration struct {
	Form         string            `yaml:"form"`
	SourceFields []string          `yaml:"source_fields"`
	Fields       []FieldMapping    `yaml:"target_fields"`
	Rules        ValidationRuleSet `yaml:"validation"`

	index     map[string]*FieldMapping
	sourceSet map[string]struct{}
}

// ConfigurationError reports a structural problem in a configuration
// document, naming the offending target field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: field %q: %s", e.Field, e.Reason)
}

var templatePlaceholders = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Load reads and validates a configuration document. Structural validation
// happens here, once, so the mapping path never re-checks shape.
func Load(r io.Reader) (*Configuration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	cfg := &Configuration{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a configuration document from disk.
func LoadFile(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open configuration %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Mapping returns the FieldMapping for a target name.
func (c *Configuration) Mapping(targetName string) (*FieldMapping, bool) {
	fm, ok := c.index[targetName]
	return fm, ok
}

func (c *Configuration) validate() error {
	if len(c.SourceFields) == 0 {
		return &ConfigurationError{Reason: "source_fields must declare the source record schema"}
	}
	if len(c.Fields) == 0 {
		return &ConfigurationError{Reason: "target_fields is empty"}
	}

	c.sourceSet = make(map[string]struct{}, len(c.SourceFields))
	for _, s := range c.SourceFields {
		c.sourceSet[s] = struct{}{}
	}

	c.index = make(map[string]*FieldMapping, len(c.Fields))
	for i := range c.Fields {
		fm := &c.Fields[i]
		if fm.Name == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("target field #%d has an empty name", i+1)}
		}
		if _, dup := c.index[fm.Name]; dup {
			return &ConfigurationError{Field: fm.Name, Reason: "duplicate target name"}
		}
		if err := c.validateRule(fm.Name, fm.Transform, fm.Sources, &fm.Params, false); err != nil {
			return err
		}
		c.index[fm.Name] = fm
	}

	for _, name := range c.Rules.RequiredFields {
		if _, ok := c.index[name]; !ok {
			return &ConfigurationError{Field: name, Reason: "required_fields entry is not a declared target field"}
		}
	}
	for _, lr := range c.Rules.LegalRules {
		if lr.Name == "" {
			return &ConfigurationError{Field: lr.Field, Reason: "legal rule has no name"}
		}
		if _, ok := c.index[lr.Field]; !ok {
			return &ConfigurationError{Field: lr.Field, Reason: fmt.Sprintf("legal rule %q references an undeclared target field", lr.Name)}
		}
		switch lr.Check {
		case CheckPositiveAmount, CheckNotFutureDate, CheckNotEmpty:
		default:
			return &ConfigurationError{Field: lr.Field, Reason: fmt.Sprintf("legal rule %q uses unknown check %q", lr.Name, lr.Check)}
		}
	}
	for _, cr := range c.Rules.CrossFieldRules {
		if cr.Name == "" {
			return &ConfigurationError{Reason: "cross-field rule has no name"}
		}
		if len(cr.Fields) != 2 {
			return &ConfigurationError{Reason: fmt.Sprintf("cross-field rule %q must reference exactly two target fields", cr.Name)}
		}
		for _, f := range cr.Fields {
			if _, ok := c.index[f]; !ok {
				return &ConfigurationError{Field: f, Reason: fmt.Sprintf("cross-field rule %q references an undeclared target field", cr.Name)}
			}
		}
		switch cr.Check {
		case CheckDateNotBefore, CheckDateNotAfter:
		case CheckAmountMinRatio:
			if cr.Ratio <= 0 {
				return &ConfigurationError{Reason: fmt.Sprintf("cross-field rule %q requires a positive ratio", cr.Name)}
			}
		default:
			return &ConfigurationError{Reason: fmt.Sprintf("cross-field rule %q uses unknown check %q", cr.Name, cr.Check)}
		}
	}

	return nil
}

// validateRule checks one transformation rule (a field mapping or a
// conditional sub-rule) against the declared source schema.
func (c *Configuration) validateRule(target string, kind TransformKind, sources []string, params *TransformParams, nested bool) error {
	for _, src := range sources {
		if _, ok := c.sourceSet[src]; !ok {
			return &ConfigurationError{Field: target, Reason: fmt.Sprintf("source reference %q is not in the source schema", src)}
		}
	}

	switch kind {
	case TransformDirect:
		if len(sources) != 1 {
			return &ConfigurationError{Field: target, Reason: "direct requires exactly one source reference"}
		}
	case TransformConcatenate:
		if len(sources) < 2 {
			return &ConfigurationError{Field: target, Reason: "concatenate requires at least two source references"}
		}
	case TransformFormatCurrency, TransformFormatDate:
		if len(sources) != 1 {
			return &ConfigurationError{Field: target, Reason: string(kind) + " requires exactly one source reference"}
		}
	case TransformTemplate:
		if params.Template == "" {
			return &ConfigurationError{Field: target, Reason: "template transformation has no template string"}
		}
		declared := make(map[string]struct{}, len(sources))
		for _, s := range sources {
			declared[s] = struct{}{}
		}
		for _, m := range templatePlaceholders.FindAllStringSubmatch(params.Template, -1) {
			if _, ok := declared[m[1]]; !ok {
				return &ConfigurationError{Field: target, Reason: fmt.Sprintf("template placeholder %q is not a declared source reference", m[1])}
			}
		}
	case TransformConditional:
		if nested {
			return &ConfigurationError{Field: target, Reason: "conditional sub-rule may not be conditional"}
		}
		if params.When == "" {
			return &ConfigurationError{Field: target, Reason: "conditional transformation has no when field"}
		}
		if _, ok := c.sourceSet[params.When]; !ok {
			return &ConfigurationError{Field: target, Reason: fmt.Sprintf("conditional when field %q is not in the source schema", params.When)}
		}
		if params.Then == nil {
			return &ConfigurationError{Field: target, Reason: "conditional transformation has no then rule"}
		}
		if err := c.validateRule(target, params.Then.Transform, params.Then.Sources, &params.Then.Params, true); err != nil {
			return err
		}
		if params.Else != nil {
			if err := c.validateRule(target, params.Else.Transform, params.Else.Sources, &params.Else.Params, true); err != nil {
				return err
			}
		}
	default:
		return &ConfigurationError{Field: target, Reason: fmt.Sprintf("unknown transformation kind %q", kind)}
	}

	return nil
}

// Provider holds the configuration shared by concurrent mapping calls.
// Replace swaps the whole object atomically, so in-flight calls keep the
// snapshot they started with and never observe a half-updated rule set.
type Provider struct {
	current atomic.Pointer[Configuration]
}

// NewProvider creates a provider seeded with an initial configuration.
func NewProvider(cfg *Configuration) *Provider {
	p := &Provider{}
	p.current.Store(cfg)
	return p
}

// Current returns the configuration snapshot for one mapping call.
func (p *Provider) Current() *Configuration {
	return p.current.Load()
}

// Replace installs a new configuration for subsequent calls.
func (p *Provider) Replace(cfg *Configuration) {
	p.current.Store(cfg)
}

// ReloadFile loads and validates a configuration document and, only on
// success, replaces the current one. A document that fails validation
// leaves the previous configuration in place.
func (p *Provider) ReloadFile(path string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	p.current.Store(cfg)
	return nil
}
