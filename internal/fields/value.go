// Package fields defines the submission data model: the tagged-union Value
// carried through the Normalize/Validate/Coerce stages, the per-type field
// Descriptor, and the closed field type registry.
package fields

// Kind discriminates the Value union.
type Kind int

const (
	KindAbsent Kind = iota
	KindScalar
	KindScalarList
	KindUpload
	KindUploadList
)

// UploadItem is the uniform shape every transport-provided upload is
// flattened into during normalization.
type UploadItem struct {
	TmpName          string
	OriginalName     string
	OriginalNameSafe string
	Size             int64
	Error            int
}

// Value is one field's submitted value: a scalar, a list of scalars, an
// upload item or list of them, or Absent. Absent means "not supplied";
// multivalue fields never carry an empty list, they collapse to Absent.
type Value struct {
	kind    Kind
	scalar  string
	list    []string
	uploads []UploadItem
}

// Absent is the zero Value.
func Absent() Value { return Value{kind: KindAbsent} }

// NewScalar wraps a single string value.
func NewScalar(s string) Value { return Value{kind: KindScalar, scalar: s} }

// NewList wraps a list of scalars. An empty list collapses to Absent.
func NewList(items []string) Value {
	if len(items) == 0 {
		return Absent()
	}
	return Value{kind: KindScalarList, list: items}
}

// NewUpload wraps a single upload item.
func NewUpload(item UploadItem) Value {
	return Value{kind: KindUpload, uploads: []UploadItem{item}}
}

// NewUploadList wraps a list of upload items. Empty collapses to Absent.
func NewUploadList(items []UploadItem) Value {
	if len(items) == 0 {
		return Absent()
	}
	return Value{kind: KindUploadList, uploads: items}
}

// Kind returns the union discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value is Absent.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Scalar returns the scalar payload; valid only for KindScalar.
func (v Value) Scalar() string { return v.scalar }

// List returns the scalar list payload; valid only for KindScalarList.
func (v Value) List() []string { return v.list }

// Upload returns the single upload payload; valid only for KindUpload.
func (v Value) Upload() UploadItem {
	if len(v.uploads) == 0 {
		return UploadItem{}
	}
	return v.uploads[0]
}

// Uploads returns the upload list payload; valid for KindUpload and
// KindUploadList.
func (v Value) Uploads() []UploadItem { return v.uploads }

// Scalars returns the value as a list regardless of arity: a scalar becomes
// a one-element list, Absent becomes nil. Validators use it to share
// per-entry checks between single and multivalue fields.
func (v Value) Scalars() []string {
	switch v.kind {
	case KindScalar:
		return []string{v.scalar}
	case KindScalarList:
		return v.list
	}
	return nil
}

// Equal reports deep equality. Used by round-trip idempotence tests and the
// matches cross-field rule's scalar comparison path.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return v.scalar == o.scalar
	case KindScalarList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case KindUpload, KindUploadList:
		if len(v.uploads) != len(o.uploads) {
			return false
		}
		for i := range v.uploads {
			if v.uploads[i] != o.uploads[i] {
				return false
			}
		}
		return true
	}
	return true
}

// Values is the flat field_key -> Value map produced by each stage.
type Values map[string]Value
