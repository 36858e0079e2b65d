package pipeline

import (
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
	"github.com/eforms/eforms/internal/registry"
)

// Result is the outcome of the Validate stage. Values are the (unmutated)
// input values; the bag holds every defect found, fully enumerated.
type Result struct {
	OK     bool
	Values fields.Values
	Bag    *errors.Bag
}

// fieldBuckets collects one field's defects by phase so the final flatten
// can emit them in the fixed order: struct, required, intrinsic, cross.
type fieldBuckets struct {
	structE    []errors.Entry
	requiredE  []errors.Entry
	intrinsicE []errors.Entry
	crossE     []errors.Entry
}

// Validate classifies and rejects; it never mutates values. Per field, in
// descriptor declaration order: struct check, then (unless the shape was
// wrong) required and intrinsic checks. Cross-field rules then run in
// declared order. The flattened output order is exactly reproducible for
// identical input.
func Validate(ctx *Context, normalized fields.Values) Result {
	ordered := ctx.Template.InputFields()
	buckets := make(map[string]*fieldBuckets, len(ordered))
	for _, f := range ordered {
		buckets[f.Key] = &fieldBuckets{}
	}
	var globals []errors.Entry

	state := &registry.UploadState{}
	for _, f := range ordered {
		d, ok := fields.Resolve(f.Type)
		if !ok {
			continue
		}
		b := buckets[f.Key]
		v := normalized[f.Key]
		spec := f.Spec()

		if entry, bad := structCheck(v, d); bad {
			b.structE = append(b.structE, entry)
			continue
		}
		if v.IsAbsent() {
			if spec.Required {
				b.requiredE = append(b.requiredE, errors.Entry{
					Code:    errors.CodeSchemaRequired,
					Message: "this field is required",
				})
			}
			continue
		}

		validator, err := registry.ResolveValidator(d.Handlers.ValidatorID)
		if err != nil {
			// Preflight proves resolvability for shipped templates; this
			// is a programmer error.
			panic(err)
		}
		tmp := errors.NewBag()
		validator(v, d, spec, ctx.Config, tmp, state)
		b.intrinsicE = append(b.intrinsicE, tmp.Field(f.Key)...)
	}

	// Cross-field rules append to the relevant bucket without reordering
	// anything already collected.
	runRules(ctx, normalized, buckets, &globals)

	bag := errors.NewBag()
	for _, e := range globals {
		bag.AddGlobal(e.Code, e.Message)
	}
	for _, f := range ordered {
		b := buckets[f.Key]
		bag.Reserve(f.Key)
		for _, group := range [][]errors.Entry{b.structE, b.requiredE, b.intrinsicE, b.crossE} {
			for _, e := range group {
				bag.Add(f.Key, e.Code, e.Message)
			}
		}
	}

	return Result{OK: !bag.HasErrors(), Values: normalized, Bag: bag}
}

// structCheck verifies the value shape matches the descriptor: scalar vs
// list vs upload item(s). Absent is always shape-correct.
func structCheck(v fields.Value, d *fields.Descriptor) (errors.Entry, bool) {
	if v.IsAbsent() {
		return errors.Entry{}, false
	}
	okShape := false
	switch v.Kind() {
	case fields.KindScalar:
		okShape = !d.IsUpload && !d.IsMultivalue
	case fields.KindScalarList:
		okShape = !d.IsUpload && d.IsMultivalue
	case fields.KindUpload:
		okShape = d.IsUpload && !d.IsMultivalue
	case fields.KindUploadList:
		okShape = d.IsUpload && d.IsMultivalue
	}
	if okShape {
		return errors.Entry{}, false
	}
	return errors.Entry{
		Code:    errors.CodeSchemaType,
		Message: "unexpected value shape",
	}, true
}
