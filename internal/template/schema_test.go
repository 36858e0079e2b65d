package template

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eforms/eforms/internal/errors"
)

// baseDoc returns a minimal valid template document. Tests mutate a copy.
func baseDoc() map[string]any {
	return map[string]any{
		"id":      "contact",
		"version": "1",
		"title":   "Contact",
		"success": map[string]any{"mode": "inline", "message": "Thanks"},
		"email": map[string]any{
			"to":             "owner@example.com",
			"subject":        "New submission",
			"email_template": "default",
			"include_fields": []any{"name", "ip"},
		},
		"fields": []any{
			map[string]any{"key": "name", "type": "text", "label": "Name", "required": true},
			map[string]any{"key": "email", "type": "email", "label": "Email"},
		},
	}
}

func codes(bag *errors.Bag) []string {
	var out []string
	for _, e := range bag.Field(errors.GlobalKey) {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateEnvelopeAcceptsMinimalTemplate(t *testing.T) {
	bag := ValidateEnvelope(baseDoc())
	assert.False(t, bag.HasErrors(), "defects: %v", bag.Field(errors.GlobalKey))
}

func TestValidateEnvelopeMissingRequiredRootKeys(t *testing.T) {
	doc := baseDoc()
	delete(doc, "title")
	delete(doc, "email")

	bag := ValidateEnvelope(doc)
	require.True(t, bag.HasErrors())
	got := codes(bag)
	count := 0
	for _, c := range got {
		if c == errors.CodeSchemaRequiredKey {
			count++
		}
	}
	assert.Equal(t, 2, count, "one defect per missing key: %v", got)
}

func TestValidateEnvelopeUnknownRootKey(t *testing.T) {
	doc := baseDoc()
	doc["theme"] = "dark"

	bag := ValidateEnvelope(doc)
	require.True(t, bag.HasErrors())
	assert.Contains(t, codes(bag), errors.CodeSchemaUnknownKey)
}

func TestValidateEnvelopeNeverShortCircuits(t *testing.T) {
	// One document with several independent defects reports all of them.
	doc := baseDoc()
	delete(doc, "version")
	doc["bogus"] = 1
	doc["fields"] = []any{
		map[string]any{"key": "name", "type": "hologram", "label": "Name"},
		map[string]any{"key": "name", "type": "text"},
	}

	bag := ValidateEnvelope(doc)
	got := codes(bag)
	assert.Contains(t, got, errors.CodeSchemaRequiredKey)
	assert.Contains(t, got, errors.CodeSchemaUnknownKey)
	assert.Contains(t, got, errors.CodeSchemaBadEnum)
	assert.Contains(t, got, errors.CodeSchemaDupKey)
}

func TestValidateEnvelopeFieldKeyShape(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"lowercase", "full_name", true},
		{"digits and dash", "line-2", true},
		{"uppercase", "Name", false},
		{"spaces", "full name", false},
		{"too long", fmt.Sprintf("%065d", 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := baseDoc()
			doc["fields"] = []any{
				map[string]any{"key": tt.key, "type": "text", "label": "x"},
			}
			bag := ValidateEnvelope(doc)
			if tt.ok {
				assert.NotContains(t, codes(bag), errors.CodeSchemaKey)
			} else {
				assert.Contains(t, codes(bag), errors.CodeSchemaKey)
			}
		})
	}
}

func TestValidateEnvelopeReservedKeys(t *testing.T) {
	for _, key := range []string{"eforms_token", "form_id", "js_ok", "eforms_hp"} {
		t.Run(key, func(t *testing.T) {
			doc := baseDoc()
			doc["fields"] = []any{
				map[string]any{"key": key, "type": "text", "label": "x"},
			}
			bag := ValidateEnvelope(doc)
			assert.Contains(t, codes(bag), errors.CodeSchemaKey)
		})
	}
}

func TestValidateEnvelopeRowGroupBalance(t *testing.T) {
	marker := func(v string) map[string]any { return map[string]any{"row_group": v} }
	field := func(k string) map[string]any {
		return map[string]any{"key": k, "type": "text", "label": k}
	}

	tests := []struct {
		name     string
		fields   []any
		balanced bool
	}{
		{"no markers", []any{field("a")}, true},
		{"balanced pair", []any{marker("start"), field("a"), marker("end")}, true},
		{"unclosed start", []any{marker("start"), field("a")}, false},
		{"stray end", []any{field("a"), marker("end")}, false},
		{"nested", []any{marker("start"), marker("start"), marker("end"), marker("end")}, false},
		{"double imbalance", []any{marker("end"), marker("start")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := baseDoc()
			doc["fields"] = tt.fields
			bag := ValidateEnvelope(doc)
			count := 0
			for _, c := range codes(bag) {
				if c == errors.CodeRowGroupUnbalanced {
					count++
				}
			}
			if tt.balanced {
				assert.Zero(t, count)
			} else {
				// Exactly one aggregate defect no matter how many imbalances.
				assert.Equal(t, 1, count)
			}
		})
	}
}

func TestValidateEnvelopeIncludeFields(t *testing.T) {
	doc := baseDoc()
	doc["email"].(map[string]any)["include_fields"] = []any{"name", "submitted_at", "ghost"}

	bag := ValidateEnvelope(doc)
	found := 0
	for _, e := range bag.Field(errors.GlobalKey) {
		if e.Code == errors.CodeSchemaUnknownKey {
			found++
		}
	}
	assert.Equal(t, 1, found, "only the undeclared non-meta name is a defect")
}

func TestValidateEnvelopeRules(t *testing.T) {
	tests := []struct {
		name string
		rule map[string]any
		ok   bool
	}{
		{
			"required_if complete",
			map[string]any{"rule": "required_if", "target": "email", "field": "name", "equals": "yes"},
			true,
		},
		{
			"required_if missing equals",
			map[string]any{"rule": "required_if", "target": "email", "field": "name"},
			false,
		},
		{
			"one_of",
			map[string]any{"rule": "one_of", "fields": []any{"name", "email"}},
			true,
		},
		{
			"unknown rule",
			map[string]any{"rule": "telepathy", "target": "email"},
			false,
		},
		{
			"stray key",
			map[string]any{"rule": "matches", "target": "email", "field": "name", "equals": "x"},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := baseDoc()
			doc["rules"] = []any{tt.rule}
			bag := ValidateEnvelope(doc)
			assert.Equal(t, tt.ok, !bag.HasErrors(), "defects: %v", bag.Field(errors.GlobalKey))
		})
	}
}

func TestValidateEnvelopeOptionStructure(t *testing.T) {
	doc := baseDoc()
	doc["fields"] = []any{
		map[string]any{
			"key": "color", "type": "select", "label": "Color",
			"options": []any{
				map[string]any{"key": "red", "label": "Red"},
				map[string]any{"key": "blue"},
				"not-an-object",
			},
		},
	}
	bag := ValidateEnvelope(doc)
	got := codes(bag)
	assert.Contains(t, got, errors.CodeSchemaRequiredKey)
	assert.Contains(t, got, errors.CodeSchemaBadType)
}

func TestCheckFragment(t *testing.T) {
	tests := []struct {
		name string
		html string
		ok   bool
	}{
		{"plain text", "hello", true},
		{"balanced tags", "<p>hi <strong>there</strong></p>", true},
		{"void elements", `<br><img src="x.png">`, true},
		{"inline style", `<p style="color:red">x</p>`, false},
		{"style tag", "<style>p{}</style>", false},
		{"unbalanced", "<div><p>x</div>", false},
		{"unclosed", "<div>x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFragment(tt.html)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	data, err := json.Marshal(baseDoc())
	require.NoError(t, err)

	tpl, bag, err := Parse(data)
	require.NoError(t, err)
	assert.False(t, bag.HasErrors())
	assert.Equal(t, "contact", tpl.ID)
	require.Len(t, tpl.InputFields(), 2)
	assert.Equal(t, "name", tpl.InputFields()[0].Key)

	f := tpl.FieldByKey("email")
	require.NotNil(t, f)
	assert.Equal(t, "email", f.Type)
	assert.Nil(t, tpl.FieldByKey("ghost"))
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, _, err := Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestInputFieldsSkipsMarkers(t *testing.T) {
	doc := baseDoc()
	doc["email"].(map[string]any)["include_fields"] = []any{"a", "ip"}
	doc["fields"] = []any{
		map[string]any{"row_group": "start"},
		map[string]any{"key": "a", "type": "text", "label": "A"},
		map[string]any{"row_group": "end"},
		map[string]any{"key": "b", "type": "text", "label": "B"},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	tpl, bag, err := Parse(data)
	require.NoError(t, err)
	assert.False(t, bag.HasErrors())

	inputs := tpl.InputFields()
	require.Len(t, inputs, 2)
	assert.Equal(t, "a", inputs[0].Key)
	assert.Equal(t, "b", inputs[1].Key)
}

func TestFieldSpecExcludesDisabledOptions(t *testing.T) {
	doc := baseDoc()
	doc["fields"] = []any{
		map[string]any{
			"key": "color", "type": "select", "label": "Color",
			"options": []any{
				map[string]any{"key": "red", "label": "Red"},
				map[string]any{"key": "blue", "label": "Blue", "disabled": true},
			},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	tpl, _, err := Parse(data)
	require.NoError(t, err)

	f := tpl.FieldByKey("color")
	require.NotNil(t, f)
	assert.Equal(t, []string{"red"}, f.Spec().OptionKeys)
}
