package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileValidConfiguration(t *testing.T) {
	cfg, err := LoadFile("testdata/purchase_agreement.yaml")
	require.NoError(t, err)

	assert.Equal(t, "residential-purchase-agreement", cfg.Form)
	assert.Len(t, cfg.Fields, 10)
	assert.Equal(t, "buyer_name", cfg.Fields[0].Name, "declaration order preserved")

	fm, ok := cfg.Mapping("purchase_price")
	require.True(t, ok)
	assert.Equal(t, TransformFormatCurrency, fm.Transform)
	assert.True(t, fm.Required)
	assert.Equal(t, FieldCurrency, fm.Type)

	_, ok = cfg.Mapping("no_such_field")
	assert.False(t, ok)
}

const minimalHeader = `
source_fields: [first_name, last_name, price, close_date, offer_date, co_buyer_present]
`

func loadConfig(t *testing.T, body string) (*Configuration, error) {
	t.Helper()
	return Load(strings.NewReader(minimalHeader + body))
}

func TestLoadRejectsStructuralViolations(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name: "duplicate target name",
			body: `
target_fields:
  - {name: buyer, sources: [first_name], transform: direct}
  - {name: buyer, sources: [last_name], transform: direct}`,
			wantMsg: "duplicate target name",
		},
		{
			name: "empty target name",
			body: `
target_fields:
  - {sources: [first_name], transform: direct}`,
			wantMsg: "empty name",
		},
		{
			name: "unknown transformation kind",
			body: `
target_fields:
  - {name: buyer, sources: [first_name], transform: reverse}`,
			wantMsg: "unknown transformation kind",
		},
		{
			name: "unresolvable source reference",
			body: `
target_fields:
  - {name: buyer, sources: [nickname], transform: direct}`,
			wantMsg: "not in the source schema",
		},
		{
			name: "required field not declared",
			body: `
target_fields:
  - {name: buyer, sources: [first_name], transform: direct}
validation:
  required_fields: [seller]`,
			wantMsg: "not a declared target field",
		},
		{
			name: "legal rule unknown check",
			body: `
target_fields:
  - {name: buyer, sources: [first_name], transform: direct}
validation:
  legal_compliance:
    - {name: r1, field: buyer, check: is_palindrome}`,
			wantMsg: "unknown check",
		},
		{
			name: "cross-field rule over undeclared field",
			body: `
target_fields:
  - {name: closing, sources: [close_date], transform: format_date}
validation:
  cross_field:
    - {name: r1, fields: [closing, offer], check: date_not_before}`,
			wantMsg: "undeclared target field",
		},
		{
			name: "ratio rule without ratio",
			body: `
target_fields:
  - {name: a, sources: [price], transform: direct}
  - {name: b, sources: [price], transform: direct}
validation:
  cross_field:
    - {name: r1, fields: [a, b], check: amount_min_ratio}`,
			wantMsg: "positive ratio",
		},
		{
			name: "nested conditional",
			body: `
target_fields:
  - name: buyer
    transform: conditional
    params:
      when: co_buyer_present
      then:
        transform: conditional
        params:
          when: co_buyer_present
          then: {transform: direct, sources: [first_name]}`,
			wantMsg: "may not be conditional",
		},
		{
			name: "template placeholder outside sources",
			body: `
target_fields:
  - name: address
    sources: [first_name]
    transform: template
    params:
      template: "{first_name} {zip}"`,
			wantMsg: "not a declared source reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(t, tt.body)
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestProviderReplaceIsAtomic(t *testing.T) {
	first, err := loadConfig(t, `
target_fields:
  - {name: buyer, sources: [first_name], transform: direct}`)
	require.NoError(t, err)

	p := NewProvider(first)
	snapshot := p.Current()
	assert.Same(t, first, snapshot)

	second, err := loadConfig(t, `
target_fields:
  - {name: buyer, sources: [first_name], transform: direct}
  - {name: price, sources: [price], transform: format_currency}`)
	require.NoError(t, err)

	p.Replace(second)
	assert.Same(t, second, p.Current())
	// The earlier snapshot is untouched: in-flight calls keep a consistent view.
	assert.Len(t, snapshot.Fields, 1)
}

func TestProviderReloadFileKeepsOldOnFailure(t *testing.T) {
	cfg, err := LoadFile("testdata/purchase_agreement.yaml")
	require.NoError(t, err)

	p := NewProvider(cfg)
	err = p.ReloadFile("testdata/does_not_exist.yaml")
	require.Error(t, err)
	assert.Same(t, cfg, p.Current())
}
