package pipeline

import (
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
)

// runRules evaluates the cross-field rules in template-declared order.
// Every rule is total and non-recursive; a rule referencing a field the
// template does not declare is a no-op. Multiple triggers against the same
// target each append their own entry, deliberately undeduplicated.
func runRules(ctx *Context, values fields.Values, buckets map[string]*fieldBuckets, globals *[]errors.Entry) {
	for _, r := range ctx.Template.Rules {
		switch r.Rule {
		case "required_if":
			if !declared(ctx, r.Target) || !declared(ctx, r.Field) {
				continue
			}
			if scalarEquals(values[r.Field], r.Equals) && values[r.Target].IsAbsent() {
				appendCross(buckets, r.Target, errors.CodeSchemaRequired, "this field is required")
			}
		case "required_if_any":
			if !declared(ctx, r.Target) {
				continue
			}
			triggered := false
			for _, name := range r.Fields {
				if !declared(ctx, name) {
					continue
				}
				for _, eq := range r.EqualsAny {
					if scalarEquals(values[name], eq) {
						triggered = true
					}
				}
			}
			if triggered && values[r.Target].IsAbsent() {
				appendCross(buckets, r.Target, errors.CodeSchemaRequired, "this field is required")
			}
		case "required_unless":
			if !declared(ctx, r.Target) || !declared(ctx, r.Field) {
				continue
			}
			if !scalarEquals(values[r.Field], r.Equals) && values[r.Target].IsAbsent() {
				appendCross(buckets, r.Target, errors.CodeSchemaRequired, "this field is required")
			}
		case "matches":
			if !declared(ctx, r.Target) || !declared(ctx, r.Field) {
				continue
			}
			a, b := values[r.Target], values[r.Field]
			if a.IsAbsent() || b.IsAbsent() {
				continue
			}
			if a.Kind() != fields.KindScalar || b.Kind() != fields.KindScalar || a.Scalar() != b.Scalar() {
				appendCross(buckets, r.Target, errors.CodeSchemaType, "values do not match")
			}
		case "one_of":
			any := false
			known := false
			for _, name := range r.Fields {
				if !declared(ctx, name) {
					continue
				}
				known = true
				if !values[name].IsAbsent() {
					any = true
				}
			}
			if known && !any {
				*globals = append(*globals, errors.Entry{
					Code:    errors.CodeSchemaRequired,
					Message: "at least one of these fields is required",
				})
			}
		case "mutually_exclusive":
			present := 0
			for _, name := range r.Fields {
				if declared(ctx, name) && !values[name].IsAbsent() {
					present++
				}
			}
			if present > 1 {
				*globals = append(*globals, errors.Entry{
					Code:    errors.CodeSchemaType,
					Message: "these fields are mutually exclusive",
				})
			}
		}
	}
}

func declared(ctx *Context, key string) bool {
	return key != "" && ctx.Template.FieldByKey(key) != nil
}

// scalarEquals compares a value against a literal. Lists and uploads never
// equal a literal; absent never equals anything.
func scalarEquals(v fields.Value, literal string) bool {
	return v.Kind() == fields.KindScalar && v.Scalar() == literal
}

func appendCross(buckets map[string]*fieldBuckets, key, code, message string) {
	b, ok := buckets[key]
	if !ok {
		return
	}
	b.crossE = append(b.crossE, errors.Entry{Code: code, Message: message})
}
