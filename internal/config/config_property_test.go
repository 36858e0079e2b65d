//go:build property
// +build property

package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAnchorProperties tests the clamp invariants over arbitrary inputs.
func TestAnchorProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: for every anchored path and any integer, the clamped value
	// lands inside [Min, Max].
	properties.Property("clamp lands in bounds", prop.ForAll(
		func(v int) bool {
			for path := range anchors {
				a, ok := GetAnchor(path)
				if !ok {
					return false
				}
				got := a.Clamp(v)
				if got < a.Min || got > a.Max {
					return false
				}
			}
			return true
		},
		gen.Int(),
	))

	// Property: clamping is idempotent.
	properties.Property("clamp idempotent", prop.ForAll(
		func(v int) bool {
			for path := range anchors {
				a, _ := GetAnchor(path)
				once := a.Clamp(v)
				if a.Clamp(once) != once {
					return false
				}
			}
			return true
		},
		gen.Int(),
	))

	// Property: in-bounds values pass through unchanged.
	properties.Property("clamp preserves in-bounds values", prop.ForAll(
		func(v int) bool {
			for path := range anchors {
				a, _ := GetAnchor(path)
				if v >= a.Min && v <= a.Max && a.Clamp(v) != v {
					return false
				}
			}
			return true
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}

// TestSanitizeProperties tests that sanitization never invents keys and
// never lets an enum-governed path carry an out-of-set value.
func TestSanitizeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("sanitize output keys are a subset of defaults", prop.ForAll(
		func(key string, val string) bool {
			override := map[string]any{key: val}
			clean := sanitizeTree(override, defaultTree(), "", func(string, string) {})
			defaults := defaultTree()
			for k := range clean {
				if _, ok := defaults[k]; !ok {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("enum paths only carry allowed values", prop.ForAll(
		func(val string) bool {
			override := map[string]any{
				"security": map[string]any{"origin_mode": val},
			}
			clean := sanitizeTree(override, defaultTree(), "", func(string, string) {})
			sec, ok := clean["security"].(map[string]any)
			if !ok {
				return true
			}
			got, present := sec["origin_mode"]
			if !present {
				return true
			}
			return contains(enumValues["security.origin_mode"], got.(string))
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
