package registry

import "github.com/eforms/eforms/internal/fields"

// normalizeIdentity passes the value through. Generic canonicalization
// (unescaping, line endings, trim, NFC) has already run in the stage.
func normalizeIdentity(v fields.Value, _ *fields.Descriptor) fields.Value {
	return v
}

// normalizeMultivalue drops empty entries; an emptied list becomes Absent,
// never an empty array.
func normalizeMultivalue(v fields.Value, _ *fields.Descriptor) fields.Value {
	if v.Kind() != fields.KindScalarList {
		return v
	}
	kept := make([]string, 0, len(v.List()))
	for _, item := range v.List() {
		if item != "" {
			kept = append(kept, item)
		}
	}
	return fields.NewList(kept)
}
