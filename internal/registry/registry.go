// Package registry holds the closed handler registries mapping short ids to
// behavior implementations for the Normalize and Validate stages, plus the
// renderer descriptor table consumed by external renderers. All three
// registries are static: the id sets are fixed at build time, and Resolve
// fails fast with a structured handler-resolution error for unknown ids —
// a genuine typo in a descriptor surfaces at template preflight, never at
// submission time.
package registry

import (
	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
)

// Normalizer canonicalizes one already-trimmed value for a field type. It
// is total: it never rejects, only reshapes.
type Normalizer func(v fields.Value, d *fields.Descriptor) fields.Value

// UploadState accumulates total upload bytes across all upload fields of a
// request so the aggregate cap is enforced in addition to per-file caps.
type UploadState struct {
	TotalBytes int64
}

// Validator runs the intrinsic checks for one field and appends defects to
// the bag under spec.Key. It never mutates the value.
type Validator func(v fields.Value, d *fields.Descriptor, spec fields.Spec, cfg *config.Config, bag *errors.Bag, state *UploadState)

// RendererDescriptor describes the fragment kind an external renderer
// should emit. The core never renders; the table exists so preflight can
// prove every field type has a complete handler set.
type RendererDescriptor struct {
	Fragment string // input|textarea|select|fieldset|file
}

var normalizers = map[string]Normalizer{
	"identity":   normalizeIdentity,
	"scalar":     normalizeIdentity,
	"multivalue": normalizeMultivalue,
	"file":       normalizeIdentity,
}

var validators = map[string]Validator{
	"text":          validateText,
	"email":         validateEmail,
	"url":           validateURL,
	"tel":           validateTel,
	"tel_us":        validateTelUS,
	"number":        validateNumber,
	"date":          validateDate,
	"zip_us":        validateZipUS,
	"options":       validateOptions,
	"options_multi": validateOptionsMulti,
	"file":          validateFile,
}

var renderers = map[string]RendererDescriptor{
	"input":            {Fragment: "input"},
	"textarea":         {Fragment: "textarea"},
	"select":           {Fragment: "select"},
	"fieldset_options": {Fragment: "fieldset"},
	"file":             {Fragment: "file"},
}

// ResolveNormalizer returns the normalizer for an id.
func ResolveNormalizer(id string) (Normalizer, error) {
	n, ok := normalizers[id]
	if !ok {
		return nil, &errors.HandlerResolutionError{Registry: "normalizer", ID: id}
	}
	return n, nil
}

// ResolveValidator returns the validator for an id.
func ResolveValidator(id string) (Validator, error) {
	v, ok := validators[id]
	if !ok {
		return nil, &errors.HandlerResolutionError{Registry: "validator", ID: id}
	}
	return v, nil
}

// ResolveRenderer returns the renderer descriptor for an id.
func ResolveRenderer(id string) (RendererDescriptor, error) {
	r, ok := renderers[id]
	if !ok {
		return RendererDescriptor{}, &errors.HandlerResolutionError{Registry: "renderer", ID: id}
	}
	return r, nil
}
