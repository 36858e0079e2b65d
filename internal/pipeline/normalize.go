package pipeline

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/eforms/eforms/internal/fields"
	"github.com/eforms/eforms/internal/registry"
)

// Normalize canonicalizes the raw submitted values into a values map keyed
// by field. It is pure and total: malformed shapes pass through unchanged
// so Validate can reject them deterministically, and nothing here ever
// produces an error.
func Normalize(ctx *Context, post map[string][]string, files map[string][]RawUpload) fields.Values {
	values := make(fields.Values)
	for _, f := range ctx.Template.InputFields() {
		d, ok := fields.Resolve(f.Type)
		if !ok {
			// Preflight guarantees resolvable types for shipped templates.
			values[f.Key] = fields.Absent()
			continue
		}
		var v fields.Value
		if d.IsUpload {
			v = normalizeUploads(d, ctx, files[f.Key])
		} else {
			v = normalizeScalars(d, post[f.Key])
		}
		if n, err := registry.ResolveNormalizer(d.Handlers.NormalizerID); err == nil {
			v = n(v, d)
		}
		values[f.Key] = v
	}
	return values
}

// normalizeScalars applies the generic text canonicalization and shapes the
// value by arity. A raw multi-entry submission into a single-value field is
// preserved as a list so Validate can reject it with a type error.
func normalizeScalars(d *fields.Descriptor, raw []string) fields.Value {
	if len(raw) == 0 {
		return fields.Absent()
	}
	items := make([]string, len(raw))
	for i, s := range raw {
		items[i] = CanonicalizeText(s)
	}
	if d.IsMultivalue {
		kept := items[:0]
		for _, s := range items {
			if s != "" {
				kept = append(kept, s)
			}
		}
		return fields.NewList(kept)
	}
	if len(items) == 1 {
		if items[0] == "" {
			return fields.Absent()
		}
		return fields.NewScalar(items[0])
	}
	return fields.NewList(items)
}

// CanonicalizeText performs the lossless generic canonicalization applied
// to every scalar text value: slash unescaping, line-ending normalization,
// trimming, and Unicode NFC.
func CanonicalizeText(s string) string {
	s = unescapeSlashes(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)
	return norm.NFC.String(s)
}

// unescapeSlashes strips one level of backslash escaping in front of
// quotes, backslashes, and NUL, matching legacy transport escaping.
func unescapeSlashes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\'', '"', '\\', '0':
				i++
				if s[i] == '0' {
					continue
				}
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// normalizeUploads flattens transport uploads into the uniform item list,
// dropping "no file supplied" entries and sanitizing original names. Shape
// follows the descriptor arity like scalars: a multivalue field is always a
// list even for one item, and extra items on a single-value field stay a
// list for Validate to reject.
func normalizeUploads(d *fields.Descriptor, ctx *Context, raw []RawUpload) fields.Value {
	maxChars := ctx.Config.Uploads.OriginalMaxChars
	items := make([]fields.UploadItem, 0, len(raw))
	for _, r := range raw {
		if r.Error == UploadErrNoFile {
			continue
		}
		items = append(items, fields.UploadItem{
			TmpName:          r.TmpName,
			OriginalName:     r.Name,
			OriginalNameSafe: SafeFilename(r.Name, maxChars),
			Size:             r.Size,
			Error:            r.Error,
		})
	}
	if len(items) == 0 {
		return fields.Absent()
	}
	if !d.IsMultivalue && len(items) == 1 {
		return fields.NewUpload(items[0])
	}
	return fields.NewUploadList(items)
}

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
)

// SafeFilename sanitizes a client-supplied file name: path separators and
// control characters stripped, whitespace collapsed, repeated dots
// collapsed, and the result truncated to maxChars. An emptied name falls
// back to "file", keeping a recognized extension when one survives.
func SafeFilename(name string, maxChars int) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = controlChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = dotRun.ReplaceAllString(name, ".")
	name = strings.Trim(name, " .")

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		if ext == "" || ext == "." {
			name = "file"
		} else {
			name = "file" + ext
		}
		base = "file"
	}
	if maxChars > 0 && len([]rune(name)) > maxChars {
		keep := maxChars - len([]rune(ext))
		if keep < 1 {
			keep = 1
		}
		runes := []rune(base)
		if len(runes) > keep {
			runes = runes[:keep]
		}
		name = string(runes) + ext
	}
	return name
}
