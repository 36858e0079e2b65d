package fields

import "sort"

// registry is the closed field type table. The set of ids is fixed at build
// time; there is no dynamic registration.
var registry = map[string]*Descriptor{
	"text": {
		Type:     "text",
		HTML:     HTMLHints{Tag: "input", InputType: "text"},
		Handlers: Handlers{ValidatorID: "text", NormalizerID: "scalar", RendererID: "input"},
	},
	"textarea": {
		Type:     "textarea",
		HTML:     HTMLHints{Tag: "textarea"},
		Handlers: Handlers{ValidatorID: "text", NormalizerID: "scalar", RendererID: "textarea"},
	},
	"name": {
		Type:         "name",
		AliasOf:      "text",
		HTML:         HTMLHints{Tag: "input", InputType: "text"},
		Canonicalize: true,
		Handlers:     Handlers{ValidatorID: "text", NormalizerID: "scalar", RendererID: "input"},
	},
	"first_name": {
		Type:         "first_name",
		AliasOf:      "name",
		HTML:         HTMLHints{Tag: "input", InputType: "text"},
		Canonicalize: true,
		Handlers:     Handlers{ValidatorID: "text", NormalizerID: "scalar", RendererID: "input"},
	},
	"last_name": {
		Type:         "last_name",
		AliasOf:      "name",
		HTML:         HTMLHints{Tag: "input", InputType: "text"},
		Canonicalize: true,
		Handlers:     Handlers{ValidatorID: "text", NormalizerID: "scalar", RendererID: "input"},
	},
	"email": {
		Type:     "email",
		HTML:     HTMLHints{Tag: "input", InputType: "email", InputMode: "email"},
		Handlers: Handlers{ValidatorID: "email", NormalizerID: "scalar", RendererID: "input"},
	},
	"url": {
		Type:     "url",
		HTML:     HTMLHints{Tag: "input", InputType: "url", InputMode: "url"},
		Handlers: Handlers{ValidatorID: "url", NormalizerID: "scalar", RendererID: "input"},
	},
	"tel": {
		Type:     "tel",
		HTML:     HTMLHints{Tag: "input", InputType: "tel", InputMode: "tel"},
		Handlers: Handlers{ValidatorID: "tel", NormalizerID: "scalar", RendererID: "input"},
	},
	"tel_us": {
		Type:      "tel_us",
		AliasOf:   "tel",
		HTML:      HTMLHints{Tag: "input", InputType: "tel", InputMode: "tel", Pattern: `[0-9()\-. +]*`},
		Constants: map[string]string{"digits": "10"},
		Handlers:  Handlers{ValidatorID: "tel_us", NormalizerID: "scalar", RendererID: "input"},
	},
	"number": {
		Type:     "number",
		HTML:     HTMLHints{Tag: "input", InputType: "number", InputMode: "numeric"},
		Handlers: Handlers{ValidatorID: "number", NormalizerID: "scalar", RendererID: "input"},
	},
	"range": {
		Type:     "range",
		AliasOf:  "number",
		HTML:     HTMLHints{Tag: "input", InputType: "range"},
		Handlers: Handlers{ValidatorID: "number", NormalizerID: "scalar", RendererID: "input"},
	},
	"date": {
		Type:      "date",
		HTML:      HTMLHints{Tag: "input", InputType: "date"},
		Constants: map[string]string{"format": "2006-01-02"},
		Handlers:  Handlers{ValidatorID: "date", NormalizerID: "scalar", RendererID: "input"},
	},
	"zip": {
		Type:     "zip",
		AliasOf:  "zip_us",
		HTML:     HTMLHints{Tag: "input", InputType: "text", InputMode: "numeric"},
		Handlers: Handlers{ValidatorID: "zip_us", NormalizerID: "scalar", RendererID: "input"},
	},
	"zip_us": {
		Type:      "zip_us",
		HTML:      HTMLHints{Tag: "input", InputType: "text", InputMode: "numeric", Pattern: `[0-9]{5}`},
		Constants: map[string]string{"digits": "5"},
		Handlers:  Handlers{ValidatorID: "zip_us", NormalizerID: "scalar", RendererID: "input"},
	},
	"select": {
		Type:         "select",
		HTML:         HTMLHints{Tag: "select"},
		TakesOptions: true,
		Handlers:     Handlers{ValidatorID: "options", NormalizerID: "scalar", RendererID: "select"},
	},
	"select_multi": {
		Type:         "select_multi",
		AliasOf:      "select",
		HTML:         HTMLHints{Tag: "select"},
		IsMultivalue: true,
		TakesOptions: true,
		Handlers:     Handlers{ValidatorID: "options_multi", NormalizerID: "multivalue", RendererID: "select"},
	},
	"radio": {
		Type:         "radio",
		HTML:         HTMLHints{Tag: "input", InputType: "radio"},
		TakesOptions: true,
		Handlers:     Handlers{ValidatorID: "options", NormalizerID: "scalar", RendererID: "fieldset_options"},
	},
	"checkbox": {
		Type:         "checkbox",
		HTML:         HTMLHints{Tag: "input", InputType: "checkbox"},
		IsMultivalue: true,
		TakesOptions: true,
		Handlers:     Handlers{ValidatorID: "options_multi", NormalizerID: "multivalue", RendererID: "fieldset_options"},
	},
	"file": {
		Type:     "file",
		HTML:     HTMLHints{Tag: "input", InputType: "file"},
		IsUpload: true,
		Handlers: Handlers{ValidatorID: "file", NormalizerID: "file", RendererID: "file"},
	},
	"files": {
		Type:         "files",
		AliasOf:      "file",
		HTML:         HTMLHints{Tag: "input", InputType: "file"},
		IsUpload:     true,
		IsMultivalue: true,
		Handlers:     Handlers{ValidatorID: "file", NormalizerID: "file", RendererID: "file"},
	},
}

// Resolve returns the descriptor for a field type id. The boolean is false
// for unknown ids; template preflight surfaces that as a schema defect.
func Resolve(fieldType string) (*Descriptor, bool) {
	d, ok := registry[fieldType]
	return d, ok
}

// Types returns the sorted set of known field type ids. Sorted so error
// messages and docs enumerate deterministically.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
