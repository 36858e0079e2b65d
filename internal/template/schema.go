package template

import (
	"fmt"
	"regexp"

	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
	"github.com/eforms/eforms/internal/registry"
)

// keyPattern is the legal shape of a field key.
var keyPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// reservedKeys are transport-level parameter names a template field may not
// shadow.
var reservedKeys = map[string]bool{
	"form_id":            true,
	"instance_id":        true,
	"timestamp":          true,
	"js_ok":              true,
	"submit":             true,
	"eforms_token":       true,
	"eforms_hp":          true,
	"eforms_mode":        true,
	"challenge_response": true,
}

// metaIncludeKeys are the non-field keys email.include_fields may name.
var metaIncludeKeys = map[string]bool{
	"ip":           true,
	"submitted_at": true,
	"form_id":      true,
	"instance_id":  true,
	"user_agent":   true,
}

var (
	rootKeys = allowList("id", "version", "title", "success", "email", "fields", "submit_button_text", "rules")
	rootReq  = []string{"id", "version", "title", "success", "email", "fields"}

	successKeys = allowList("mode", "redirect_url", "message")
	emailKeys   = allowList("to", "subject", "email_template", "include_fields", "display_format_tel")
	emailReq    = []string{"to", "subject", "email_template", "include_fields"}

	fieldKeys  = allowList("key", "type", "label", "required", "placeholder", "autocomplete", "class", "options", "min", "max", "max_length", "accept", "before_html", "after_html")
	markerKeys = allowList("row_group", "class")
	optionKeys = allowList("key", "label", "disabled")

	// ruleShapes maps a rule discriminant to its required keys; the allow
	// list for each shape is the required set plus "rule".
	ruleShapes = map[string][]string{
		"required_if":        {"target", "field", "equals"},
		"required_if_any":    {"target", "fields", "equals_any"},
		"required_unless":    {"target", "field", "equals"},
		"matches":            {"target", "field"},
		"one_of":             {"fields"},
		"mutually_exclusive": {"fields"},
	}
)

func allowList(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// ValidateEnvelope runs the full structural and semantic preflight over a
// raw template document. All defects accumulate into one bag; validation
// never short-circuits, so a template author sees the complete defect set
// in a single pass.
func ValidateEnvelope(raw map[string]any) *errors.Bag {
	bag := errors.NewBag()
	checkObject(bag, raw, rootKeys, rootReq, "")

	checkString(bag, raw, "id", "")
	checkString(bag, raw, "version", "")
	checkString(bag, raw, "title", "")
	checkString(bag, raw, "submit_button_text", "")

	if success, ok := objectAt(bag, raw, "success"); ok {
		checkObject(bag, success, successKeys, []string{"mode"}, "success")
		checkEnum(bag, success, "mode", []string{"inline", "redirect"}, "success")
		checkString(bag, success, "redirect_url", "success")
		checkString(bag, success, "message", "success")
	}

	if email, ok := objectAt(bag, raw, "email"); ok {
		checkObject(bag, email, emailKeys, emailReq, "email")
		checkString(bag, email, "to", "email")
		checkString(bag, email, "subject", "email")
		checkString(bag, email, "email_template", "email")
		checkStringList(bag, email, "include_fields", "email")
		checkEnum(bag, email, "display_format_tel", []string{"digits", "dashed", "paren"}, "email")
	}

	fieldEntries := validateFieldsStructure(bag, raw)
	validateRulesStructure(bag, raw)
	validateSemantics(bag, raw, fieldEntries)

	return bag
}

// validateFieldsStructure checks every fields[] entry and returns the raw
// entries for the semantic pass.
func validateFieldsStructure(bag *errors.Bag, raw map[string]any) []map[string]any {
	list, ok := raw["fields"].([]any)
	if !ok {
		if _, present := raw["fields"]; present {
			bag.AddGlobal(errors.CodeSchemaBadType, "fields must be a list")
		}
		return nil
	}
	entries := make([]map[string]any, 0, len(list))
	for i, item := range list {
		path := fmt.Sprintf("fields[%d]", i)
		entry, ok := item.(map[string]any)
		if !ok {
			bag.AddGlobal(errors.CodeSchemaBadType, path+" must be an object")
			continue
		}
		entries = append(entries, entry)
		if _, marker := entry["row_group"]; marker {
			checkObject(bag, entry, markerKeys, []string{"row_group"}, path)
			checkEnum(bag, entry, "row_group", []string{"start", "end"}, path)
			continue
		}
		checkObject(bag, entry, fieldKeys, []string{"key", "type"}, path)
		checkString(bag, entry, "key", path)
		checkEnum(bag, entry, "type", fields.Types(), path)
		checkString(bag, entry, "label", path)
		checkBool(bag, entry, "required", path)
		checkString(bag, entry, "placeholder", path)
		checkString(bag, entry, "autocomplete", path)
		checkString(bag, entry, "class", path)
		checkNumber(bag, entry, "min", path)
		checkNumber(bag, entry, "max", path)
		checkInt(bag, entry, "max_length", path)
		checkStringList(bag, entry, "accept", path)
		checkString(bag, entry, "before_html", path)
		checkString(bag, entry, "after_html", path)
		validateOptionsStructure(bag, entry, path)
	}
	return entries
}

func validateOptionsStructure(bag *errors.Bag, entry map[string]any, path string) {
	rawOpts, present := entry["options"]
	if !present {
		return
	}
	opts, ok := rawOpts.([]any)
	if !ok {
		bag.AddGlobal(errors.CodeSchemaBadType, path+".options must be a list")
		return
	}
	for i, o := range opts {
		optPath := fmt.Sprintf("%s.options[%d]", path, i)
		opt, ok := o.(map[string]any)
		if !ok {
			bag.AddGlobal(errors.CodeSchemaBadType, optPath+" must be an object")
			continue
		}
		checkObject(bag, opt, optionKeys, []string{"key", "label"}, optPath)
		checkString(bag, opt, "key", optPath)
		checkString(bag, opt, "label", optPath)
		checkBool(bag, opt, "disabled", optPath)
	}
}

func validateRulesStructure(bag *errors.Bag, raw map[string]any) {
	rawRules, present := raw["rules"]
	if !present {
		return
	}
	rules, ok := rawRules.([]any)
	if !ok {
		bag.AddGlobal(errors.CodeSchemaBadType, "rules must be a list")
		return
	}
	for i, r := range rules {
		path := fmt.Sprintf("rules[%d]", i)
		rule, ok := r.(map[string]any)
		if !ok {
			bag.AddGlobal(errors.CodeSchemaBadType, path+" must be an object")
			continue
		}
		name, _ := rule["rule"].(string)
		required, known := ruleShapes[name]
		if !known {
			bag.AddGlobal(errors.CodeSchemaBadEnum, path+".rule is not a known rule")
			continue
		}
		allowed := allowList(append([]string{"rule"}, required...)...)
		checkObject(bag, rule, allowed, append([]string{"rule"}, required...), path)
		for _, key := range required {
			switch key {
			case "fields", "equals_any":
				checkStringList(bag, rule, key, path)
			default:
				checkString(bag, rule, key, path)
			}
		}
	}
}

// validateSemantics runs the preflight checks that need the whole document:
// key uniqueness and shape, descriptor and handler resolution, row_group
// balance, include_fields membership, and HTML fragment hygiene.
func validateSemantics(bag *errors.Bag, raw map[string]any, entries []map[string]any) {
	seen := map[string]bool{}
	declared := map[string]bool{}
	depth := 0
	balanced := true

	for i, entry := range entries {
		path := fmt.Sprintf("fields[%d]", i)
		if marker, ok := entry["row_group"].(string); ok {
			switch marker {
			case "start":
				if depth > 0 {
					balanced = false
				}
				depth++
			case "end":
				if depth == 0 {
					balanced = false
				} else {
					depth--
				}
			}
			continue
		}

		key, _ := entry["key"].(string)
		if key != "" {
			if !keyPattern.MatchString(key) {
				bag.AddGlobal(errors.CodeSchemaKey, path+".key does not match the required pattern")
			}
			if reservedKeys[key] {
				bag.AddGlobal(errors.CodeSchemaKey, path+".key is reserved")
			}
			if seen[key] {
				bag.AddGlobal(errors.CodeSchemaDupKey, path+".key duplicates an earlier field")
			}
			seen[key] = true
			declared[key] = true
		}

		if typ, ok := entry["type"].(string); ok {
			checkDescriptor(bag, typ, path)
		}

		for _, frag := range []string{"before_html", "after_html"} {
			if html, ok := entry[frag].(string); ok && html != "" {
				if err := checkFragment(html); err != nil {
					bag.AddGlobal(errors.CodeSchemaObject, fmt.Sprintf("%s.%s: %v", path, frag, err))
				}
			}
		}
	}

	if depth != 0 {
		balanced = false
	}
	if !balanced {
		// One aggregate defect regardless of how many imbalances exist.
		bag.AddGlobal(errors.CodeRowGroupUnbalanced, "row_group markers are unbalanced")
	}

	if email, ok := raw["email"].(map[string]any); ok {
		if include, ok := email["include_fields"].([]any); ok {
			for i, item := range include {
				name, ok := item.(string)
				if !ok {
					continue
				}
				if !declared[name] && !metaIncludeKeys[name] {
					bag.AddGlobal(errors.CodeSchemaUnknownKey, fmt.Sprintf("email.include_fields[%d] names an unknown field", i))
				}
			}
		}
	}
}

// checkDescriptor resolves the field type's descriptor and all three of its
// handler ids. A resolution failure is a template defect, surfaced as
// SCHEMA_OBJECT rather than a runtime panic.
func checkDescriptor(bag *errors.Bag, typ, path string) {
	d, ok := fields.Resolve(typ)
	if !ok {
		// Unknown types were already rejected by the enum check; this
		// covers a registry row missing for an enumerated type.
		bag.AddGlobal(errors.CodeSchemaObject, path+": no descriptor for field type")
		return
	}
	if _, err := registry.ResolveValidator(d.Handlers.ValidatorID); err != nil {
		bag.AddGlobal(errors.CodeSchemaObject, fmt.Sprintf("%s: %v", path, err))
	}
	if _, err := registry.ResolveNormalizer(d.Handlers.NormalizerID); err != nil {
		bag.AddGlobal(errors.CodeSchemaObject, fmt.Sprintf("%s: %v", path, err))
	}
	if _, err := registry.ResolveRenderer(d.Handlers.RendererID); err != nil {
		bag.AddGlobal(errors.CodeSchemaObject, fmt.Sprintf("%s: %v", path, err))
	}
}

// Structural check helpers. Each reports at the given path prefix and never
// aborts the caller's loop.

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func checkObject(bag *errors.Bag, obj map[string]any, allowed map[string]bool, required []string, prefix string) {
	for key := range obj {
		if !allowed[key] {
			bag.AddGlobal(errors.CodeSchemaUnknownKey, joinPath(prefix, key)+" is not a recognized key")
		}
	}
	for _, key := range required {
		if _, ok := obj[key]; !ok {
			bag.AddGlobal(errors.CodeSchemaRequiredKey, joinPath(prefix, key)+" is required")
		}
	}
}

func objectAt(bag *errors.Bag, obj map[string]any, key string) (map[string]any, bool) {
	raw, present := obj[key]
	if !present {
		return nil, false
	}
	sub, ok := raw.(map[string]any)
	if !ok {
		bag.AddGlobal(errors.CodeSchemaBadType, key+" must be an object")
		return nil, false
	}
	return sub, true
}

func checkString(bag *errors.Bag, obj map[string]any, key, prefix string) {
	if raw, present := obj[key]; present {
		if _, ok := raw.(string); !ok {
			bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be a string")
		}
	}
}

func checkBool(bag *errors.Bag, obj map[string]any, key, prefix string) {
	if raw, present := obj[key]; present {
		if _, ok := raw.(bool); !ok {
			bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be a boolean")
		}
	}
}

func checkNumber(bag *errors.Bag, obj map[string]any, key, prefix string) {
	if raw, present := obj[key]; present {
		switch raw.(type) {
		case float64, int:
		default:
			bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be a number")
		}
	}
}

func checkInt(bag *errors.Bag, obj map[string]any, key, prefix string) {
	raw, present := obj[key]
	if !present {
		return
	}
	switch n := raw.(type) {
	case int:
	case float64:
		if n != float64(int(n)) {
			bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be an integer")
		}
	default:
		bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be an integer")
	}
}

func checkStringList(bag *errors.Bag, obj map[string]any, key, prefix string) {
	raw, present := obj[key]
	if !present {
		return
	}
	list, ok := raw.([]any)
	if !ok {
		bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be a list of strings")
		return
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be a list of strings")
			return
		}
	}
}

func checkEnum(bag *errors.Bag, obj map[string]any, key string, allowed []string, prefix string) {
	raw, present := obj[key]
	if !present {
		return
	}
	s, ok := raw.(string)
	if !ok {
		bag.AddGlobal(errors.CodeSchemaBadType, joinPath(prefix, key)+" must be a string")
		return
	}
	for _, a := range allowed {
		if s == a {
			return
		}
	}
	bag.AddGlobal(errors.CodeSchemaBadEnum, joinPath(prefix, key)+" has an unsupported value")
}
