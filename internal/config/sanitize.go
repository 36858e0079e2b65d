package config

import "fmt"

// rejectReason values carried by sanitize and clamp warning events.
const (
	reasonType    = "type"
	reasonEnum    = "enum"
	reasonUnknown = "unknown"
	reasonMissing = "missing"
)

// warnFunc receives one (path, reason) pair per rejected override. The
// provider wraps it with first-seen-wins dedup so a path warns at most once
// per bootstrap.
type warnFunc func(path, reason string)

// sanitizeTree walks an override tree against the defaults tree and returns
// a copy containing only known keys whose values pass type/enum checks.
// Rejected keys are dropped (the per-key default wins later at merge);
// rejection never aborts sanitization of sibling keys.
func sanitizeTree(override, defaults map[string]any, prefix string, warn warnFunc) map[string]any {
	out := make(map[string]any, len(override))
	for key, val := range override {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		def, known := defaults[key]
		if !known {
			warn(path, reasonUnknown)
			continue
		}
		switch dv := def.(type) {
		case map[string]any:
			sub, ok := val.(map[string]any)
			if !ok {
				warn(path, reasonType)
				continue
			}
			out[key] = sanitizeTree(sub, dv, path, warn)
		default:
			clean, ok := sanitizeScalar(val, def, path, warn)
			if ok {
				out[key] = clean
			}
		}
	}
	return out
}

// sanitizeScalar checks one leaf value against the shape of its default.
// String-enum paths additionally check membership in the closed value set.
func sanitizeScalar(val, def any, path string, warn warnFunc) (any, bool) {
	switch def.(type) {
	case bool:
		v, ok := val.(bool)
		if !ok {
			warn(path, reasonType)
			return nil, false
		}
		return v, true
	case int:
		v, ok := asInt(val)
		if !ok {
			warn(path, reasonType)
			return nil, false
		}
		return v, true
	case string:
		v, ok := val.(string)
		if !ok {
			warn(path, reasonType)
			return nil, false
		}
		if allowed, enumed := enumValues[path]; enumed && !contains(allowed, v) {
			warn(path, reasonEnum)
			return nil, false
		}
		return v, true
	case []string:
		// List-typed defaults accept only string-only lists.
		items, ok := asStringList(val)
		if !ok {
			warn(path, reasonType)
			return nil, false
		}
		return items, true
	default:
		warn(path, reasonType)
		return nil, false
	}
}

// mergeTree merges a sanitized override onto a copy of dst. An unknown key
// at merge time aborts the entire merge, not just the offending key; the
// caller discards the result and keeps the pre-merge tree.
func mergeTree(dst, src map[string]any, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for key, val := range src {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		cur, known := out[key]
		if !known {
			return nil, fmt.Errorf("unknown key %q", path)
		}
		if curMap, ok := cur.(map[string]any); ok {
			srcMap, ok := val.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("scalar override for subtree %q", path)
			}
			merged, err := mergeTree(curMap, srcMap, path)
			if err != nil {
				return nil, err
			}
			out[key] = merged
			continue
		}
		out[key] = val
	}
	return out, nil
}

// clampedPaths lists the integer config paths bootstrap clamps, in a fixed
// order. Every entry needs a matching row in the anchors table; a path left
// unanchored fails closed at clamp time rather than passing through.
var clampedPaths = []string{
	"security.token_ttl_seconds",
	"security.min_fill_seconds",
	"security.max_form_age_seconds",
	"challenge.http_timeout_seconds",
	"throttle.max_per_minute",
	"throttle.cooldown_seconds",
	"validation.max_items_per_multivalue",
	"uploads.max_file_bytes",
	"uploads.max_request_bytes",
	"uploads.max_files",
	"uploads.original_max_chars",
	"logging.retention_days",
}

// clampTree applies the anchor bounds to every governed path. A value that
// is missing or non-numeric, or whose anchor cannot be resolved, fails
// closed to the (already clamped by construction) built-in default.
func clampTree(tree, defaults map[string]any, warn warnFunc) {
	for _, path := range clampedPaths {
		def, _ := asInt(lookupPath(defaults, path))
		a, ok := GetAnchor(path)
		if !ok {
			warn(path, reasonMissing)
			setPath(tree, path, def)
			continue
		}
		v, ok := asInt(lookupPath(tree, path))
		if !ok {
			setPath(tree, path, a.Clamp(def))
			continue
		}
		setPath(tree, path, a.Clamp(v))
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asStringList(v any) ([]string, bool) {
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...), true
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func contains(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}

func lookupPath(tree map[string]any, path string) any {
	parts := splitPath(path)
	cur := any(tree)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func setPath(tree map[string]any, path string, v any) {
	parts := splitPath(path)
	cur := tree
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}
