package fields

// HTMLHints carries the static rendering metadata for a field type. The
// core never renders HTML; the hints exist so an external renderer can, and
// so the template preflight can resolve a complete descriptor.
type HTMLHints struct {
	Tag       string
	InputType string
	InputMode string
	Pattern   string
}

// Handlers names the behavior implementations for a field type. Ids resolve
// through the closed registries in internal/registry.
type Handlers struct {
	ValidatorID  string
	NormalizerID string
	RendererID   string
}

// Descriptor is the resolved, immutable metadata for one field type.
type Descriptor struct {
	Type         string
	HTML         HTMLHints
	Constants    map[string]string
	Defaults     map[string]any
	IsMultivalue bool
	Handlers     Handlers
	AliasOf      string
	// Canonicalize opts the type into Coerce's whitespace collapsing.
	Canonicalize bool
	// TakesOptions marks types whose template fields must declare options.
	TakesOptions bool
	// IsUpload marks file-typed fields.
	IsUpload bool
}

// Spec is the subset of a template field the intrinsic validators consume.
// It exists so the registry package does not depend on the template package.
type Spec struct {
	Key        string
	Required   bool
	OptionKeys []string // non-disabled option keys, declaration order
	Min        *float64
	Max        *float64
	MaxLength  int
	Accept     []string // upload accept tokens
}
