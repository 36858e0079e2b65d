// Package template defines the loaded form template artifact, its JSON
// loader and per-path cache, and the schema preflight that validates a
// template document once at load time. Templates are read-only after load
// and reused across requests.
package template

import "github.com/eforms/eforms/internal/fields"

// Success controls the post-submission response.
type Success struct {
	Mode        string `json:"mode"` // inline|redirect
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Email describes dispatch of the accepted submission. Dispatch itself is
// an external collaborator; only the declaration is validated here.
type Email struct {
	To               string   `json:"to"`
	Subject          string   `json:"subject"`
	EmailTemplate    string   `json:"email_template"`
	IncludeFields    []string `json:"include_fields"`
	DisplayFormatTel string   `json:"display_format_tel,omitempty"`
}

// Option is one declared choice of a select/radio/checkbox field.
type Option struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Field is one entry of the ordered fields list. A row_group marker carries
// only RowGroup (and optionally Class); a real field carries everything
// else and leaves RowGroup empty.
type Field struct {
	RowGroup string `json:"row_group,omitempty"` // start|end

	Key          string   `json:"key,omitempty"`
	Type         string   `json:"type,omitempty"`
	Label        string   `json:"label,omitempty"`
	Required     bool     `json:"required,omitempty"`
	Placeholder  string   `json:"placeholder,omitempty"`
	Autocomplete string   `json:"autocomplete,omitempty"`
	Class        string   `json:"class,omitempty"`
	Options      []Option `json:"options,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	MaxLength    int      `json:"max_length,omitempty"`
	Accept       []string `json:"accept,omitempty"`
	BeforeHTML   string   `json:"before_html,omitempty"`
	AfterHTML    string   `json:"after_html,omitempty"`
}

// IsMarker reports whether the entry is a row_group marker.
func (f *Field) IsMarker() bool { return f.RowGroup != "" }

// Spec projects the field into the shape the intrinsic validators consume.
func (f *Field) Spec() fields.Spec {
	var optionKeys []string
	for _, o := range f.Options {
		if !o.Disabled {
			optionKeys = append(optionKeys, o.Key)
		}
	}
	return fields.Spec{
		Key:        f.Key,
		Required:   f.Required,
		OptionKeys: optionKeys,
		Min:        f.Min,
		Max:        f.Max,
		MaxLength:  f.MaxLength,
		Accept:     append([]string(nil), f.Accept...),
	}
}

// Rule is one cross-field rule. Shape depends on the Rule discriminant.
type Rule struct {
	Rule      string   `json:"rule"`
	Target    string   `json:"target,omitempty"`
	Field     string   `json:"field,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	Equals    string   `json:"equals,omitempty"`
	EqualsAny []string `json:"equals_any,omitempty"`
}

// Template is the loaded, validated form document.
type Template struct {
	ID               string  `json:"id"`
	Version          string  `json:"version"`
	Title            string  `json:"title"`
	Success          Success `json:"success"`
	Email            Email   `json:"email"`
	Fields           []Field `json:"fields"`
	SubmitButtonText string  `json:"submit_button_text,omitempty"`
	Rules            []Rule  `json:"rules,omitempty"`
}

// InputFields returns the real fields in declaration order, markers
// skipped. Every stage iterates this order; it is the ordering authority
// for error output.
func (t *Template) InputFields() []*Field {
	out := make([]*Field, 0, len(t.Fields))
	for i := range t.Fields {
		if !t.Fields[i].IsMarker() {
			out = append(out, &t.Fields[i])
		}
	}
	return out
}

// FieldByKey returns the field with the given key, or nil.
func (t *Template) FieldByKey(key string) *Field {
	for i := range t.Fields {
		if !t.Fields[i].IsMarker() && t.Fields[i].Key == key {
			return &t.Fields[i]
		}
	}
	return nil
}
