package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatenateSkipsAbsentFields(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{
		Name:      "buyer_name",
		Sources:   []string{"first_name", "middle_name", "last_name"},
		Transform: TransformConcatenate,
	}

	tests := []struct {
		name string
		rec  SourceRecord
		want string
	}{
		{
			name: "all present",
			rec:  SourceRecord{"first_name": "Ana", "middle_name": "M", "last_name": "Lee"},
			want: "Ana M Lee",
		},
		{
			name: "middle absent",
			rec:  SourceRecord{"first_name": "Ana", "last_name": "Lee"},
			want: "Ana Lee",
		},
		{
			name: "middle empty string",
			rec:  SourceRecord{"first_name": "Ana", "middle_name": "", "last_name": "Lee"},
			want: "Ana Lee",
		},
		{
			name: "all absent",
			rec:  SourceRecord{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Apply(fm, tt.rec)
			assert.False(t, res.Failed)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestConcatenateCustomSeparator(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{
		Sources:   []string{"last_name", "first_name"},
		Transform: TransformConcatenate,
		Params:    TransformParams{Separator: ", "},
	}

	res := engine.Apply(fm, SourceRecord{"first_name": "Ana", "last_name": "Lee"})
	assert.Equal(t, "Lee, Ana", res.Value)
}

func TestFormatCurrency(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{
		Sources:   []string{"price"},
		Transform: TransformFormatCurrency,
	}

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"whole amount", "450000", "$450,000"},
		{"fractional amount", "1234.5", "$1,234.50"},
		{"already formatted", "$1,250,000", "$1,250,000"},
		{"numeric value", float64(98500), "$98,500"},
		{"small amount", "950", "$950"},
		{"negative amount", "-1234.5", "-$1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Apply(fm, SourceRecord{"price": tt.in})
			require.False(t, res.Failed, "reason: %s", res.Reason)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestFormatCurrencyRoundTrip(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{Sources: []string{"price"}, Transform: TransformFormatCurrency}

	res := engine.Apply(fm, SourceRecord{"price": "1234.5"})
	require.False(t, res.Failed)

	back, err := ParseAmount(res.Value)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, back)
}

func TestFormatCurrencyMalformedFailsSoftly(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{Sources: []string{"price"}, Transform: TransformFormatCurrency}

	res := engine.Apply(fm, SourceRecord{"price": "four hundred"})
	assert.True(t, res.Failed)
	assert.Contains(t, res.Reason, "four hundred")

	// Absent input is empty, not failed.
	res = engine.Apply(fm, SourceRecord{})
	assert.False(t, res.Failed)
	assert.Empty(t, res.Value)
}

func TestFormatDate(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{Sources: []string{"close_date"}, Transform: TransformFormatDate}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical", "2025-08-01", "2025-08-01"},
		{"us slashes", "08/01/2025", "2025-08-01"},
		{"short slashes", "8/1/2025", "2025-08-01"},
		{"long form", "August 1, 2025", "2025-08-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Apply(fm, SourceRecord{"close_date": tt.in})
			require.False(t, res.Failed, "reason: %s", res.Reason)
			assert.Equal(t, tt.want, res.Value)
		})
	}

	res := engine.Apply(fm, SourceRecord{"close_date": "next tuesday"})
	assert.True(t, res.Failed)
}

func TestTemplateMissingPlaceholderRendersEmpty(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{
		Sources:   []string{"city", "state", "zip"},
		Transform: TransformTemplate,
		Params:    TransformParams{Template: "{city}, {state} {zip}"},
	}

	res := engine.Apply(fm, SourceRecord{"city": "Mesa", "state": "AZ", "zip": "85201"})
	require.False(t, res.Failed)
	assert.Equal(t, "Mesa, AZ 85201", res.Value)

	res = engine.Apply(fm, SourceRecord{"city": "Mesa", "state": "AZ"})
	require.False(t, res.Failed)
	assert.Equal(t, "Mesa, AZ", res.Value)
}

func TestConditionalSelectsSubRule(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{
		Name:      "co_buyer_name",
		Transform: TransformConditional,
		Params: TransformParams{
			When: "co_buyer_present",
			Then: &SubRule{
				Transform: TransformConcatenate,
				Sources:   []string{"co_buyer_first_name", "co_buyer_last_name"},
			},
		},
	}

	rec := SourceRecord{
		"co_buyer_present":    true,
		"co_buyer_first_name": "Sam",
		"co_buyer_last_name":  "Lee",
	}
	res := engine.Apply(fm, rec)
	assert.Equal(t, "Sam Lee", res.Value)

	// Condition false: no else rule means empty.
	res = engine.Apply(fm, SourceRecord{"co_buyer_present": false})
	assert.Empty(t, res.Value)
	assert.False(t, res.Failed)

	// Condition absent behaves like false.
	res = engine.Apply(fm, SourceRecord{})
	assert.Empty(t, res.Value)
}

func TestConditionalElseRule(t *testing.T) {
	engine := NewEngine()
	fm := &FieldMapping{
		Transform: TransformConditional,
		Params: TransformParams{
			When: "financing_type",
			Then: &SubRule{Transform: TransformDirect, Sources: []string{"financing_type"}},
			Else: &SubRule{Transform: TransformTemplate, Params: TransformParams{Template: "cash"}},
		},
	}

	res := engine.Apply(fm, SourceRecord{"financing_type": "FHA"})
	assert.Equal(t, "FHA", res.Value)

	res = engine.Apply(fm, SourceRecord{})
	assert.Equal(t, "cash", res.Value)
}

func TestSourceRecordLookupScalars(t *testing.T) {
	rec := SourceRecord{
		"text":    "hello",
		"number":  float64(42),
		"decimal": 1234.5,
		"flag":    true,
		"blank":   "",
		"null":    nil,
	}

	v, ok := rec.Lookup("text")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	v, ok = rec.Lookup("number")
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	v, ok = rec.Lookup("decimal")
	assert.True(t, ok)
	assert.Equal(t, "1234.5", v)

	v, ok = rec.Lookup("flag")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = rec.Lookup("blank")
	assert.False(t, ok)
	_, ok = rec.Lookup("null")
	assert.False(t, ok)
	_, ok = rec.Lookup("absent")
	assert.False(t, ok)
}

func TestTruthy(t *testing.T) {
	rec := SourceRecord{
		"yes_bool": true,
		"no_bool":  false,
		"yes_text": "yes",
		"no_text":  "no",
		"plain":    "anything",
		"zero":     "0",
	}

	assert.True(t, rec.Truthy("yes_bool"))
	assert.False(t, rec.Truthy("no_bool"))
	assert.True(t, rec.Truthy("yes_text"))
	assert.False(t, rec.Truthy("no_text"))
	assert.True(t, rec.Truthy("plain"))
	assert.False(t, rec.Truthy("zero"))
	assert.False(t, rec.Truthy("absent"))
}
