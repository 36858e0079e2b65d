package pipeline

import (
	"regexp"
	"strings"

	"github.com/eforms/eforms/internal/fields"
)

var internalSpace = regexp.MustCompile(`\s+`)

// Coerce applies the pure post-validation canonicalizations. It runs only
// after Validate has approved the data, never rejects, and is idempotent:
// coercing already-coerced values is a no-op.
func Coerce(ctx *Context, validated fields.Values) fields.Values {
	out := make(fields.Values, len(validated))
	for _, f := range ctx.Template.InputFields() {
		v := validated[f.Key]
		d, ok := fields.Resolve(f.Type)
		if !ok {
			out[f.Key] = v
			continue
		}
		out[f.Key] = coerceValue(v, d)
	}
	return out
}

func coerceValue(v fields.Value, d *fields.Descriptor) fields.Value {
	transform := coerceTransform(d)
	if transform == nil {
		return v
	}
	switch v.Kind() {
	case fields.KindScalar:
		return fields.NewScalar(transform(v.Scalar()))
	case fields.KindScalarList:
		items := make([]string, len(v.List()))
		for i, s := range v.List() {
			items[i] = transform(s)
		}
		return fields.NewList(items)
	}
	return v
}

func coerceTransform(d *fields.Descriptor) func(string) string {
	switch d.Type {
	case "email":
		return lowercaseDomain
	case "tel_us":
		return bareUSDigits
	}
	if d.Canonicalize {
		return collapseWhitespace
	}
	return nil
}

// lowercaseDomain lowercases only the domain portion of an email address;
// the local part is case-significant per RFC and left alone.
func lowercaseDomain(s string) string {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}
	return s[:at+1] + strings.ToLower(s[at+1:])
}

// bareUSDigits canonicalizes a validated US phone number to its 10 bare
// digits, dropping separators and the optional leading country code.
func bareUSDigits(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(internalSpace.ReplaceAllString(s, " "))
}
