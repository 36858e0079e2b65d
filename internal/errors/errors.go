// Package errors provides the structured, stable-coded error collection
// shared by every stage of the submission pipeline. A Bag groups entries
// under the pseudo-field "_global" plus one bucket per field key, and
// preserves field declaration order so identical inputs always serialize to
// identical output.
package errors

import (
	"fmt"
	"os"
)

// GlobalKey is the pseudo-field bucket for errors not attributable to a
// single field. It is always present in a Bag's key order, even when empty.
const GlobalKey = "_global"

// Entry is a single structured defect: a stable code plus an optional
// human-readable message for client rendering.
type Entry struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Bag accumulates entries per field. Field buckets appear in first-insertion
// order, which callers arrange to be template field declaration order.
type Bag struct {
	order   []string
	buckets map[string][]Entry
}

// debugCodes enables the closed-set assertion on every Add. It is a
// programmer-error tripwire, not a runtime validation: production deployments
// leave it off and unknown codes pass through.
var debugCodes = os.Getenv("EFORMS_DEBUG") != ""

// NewBag returns an empty Bag with the _global bucket present.
func NewBag() *Bag {
	return &Bag{
		order:   []string{GlobalKey},
		buckets: map[string][]Entry{GlobalKey: {}},
	}
}

func (b *Bag) add(key string, e Entry) {
	if debugCodes && !All[e.Code] {
		panic(fmt.Sprintf("errors: unknown code %q", e.Code))
	}
	if _, ok := b.buckets[key]; !ok {
		b.order = append(b.order, key)
	}
	b.buckets[key] = append(b.buckets[key], e)
}

// Add appends an entry to a field bucket, creating the bucket at the end of
// the current key order if it does not exist yet.
func (b *Bag) Add(field, code, message string) {
	b.add(field, Entry{Code: code, Message: message})
}

// AddGlobal appends an entry to the _global bucket.
func (b *Bag) AddGlobal(code, message string) {
	b.add(GlobalKey, Entry{Code: code, Message: message})
}

// Reserve ensures a field bucket exists at the current position in the key
// order without adding an entry. The Validate stage reserves every field in
// descriptor order before collecting, which pins the export order regardless
// of which fields actually fail.
func (b *Bag) Reserve(field string) {
	if _, ok := b.buckets[field]; !ok {
		b.order = append(b.order, field)
		b.buckets[field] = []Entry{}
	}
}

// Keys returns the bucket keys: always _global first, then field keys in
// insertion order. Empty reserved buckets are skipped except _global.
func (b *Bag) Keys() []string {
	keys := make([]string, 0, len(b.order))
	for _, k := range b.order {
		if k == GlobalKey || len(b.buckets[k]) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// Field returns the entries for one bucket, or nil.
func (b *Bag) Field(key string) []Entry {
	return b.buckets[key]
}

// Len counts entries across all buckets.
func (b *Bag) Len() int {
	n := 0
	for _, es := range b.buckets {
		n += len(es)
	}
	return n
}

// HasErrors reports whether any bucket holds at least one entry.
func (b *Bag) HasErrors() bool {
	return b.Len() > 0
}

// Merge appends every entry of other into b, preserving other's key order.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, k := range other.order {
		for _, e := range other.buckets[k] {
			b.add(k, e)
		}
	}
}

// ExportedBucket is one (key, entries) pair of a materialized Bag. The
// map-free shape exists so JSON encoding and tests see a deterministic
// order; iteration over a Go map would not be reproducible.
type ExportedBucket struct {
	Key     string  `json:"key"`
	Entries []Entry `json:"entries"`
}

// Export materializes the bag as an ordered slice of buckets.
func (b *Bag) Export() []ExportedBucket {
	keys := b.Keys()
	out := make([]ExportedBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, ExportedBucket{Key: k, Entries: b.buckets[k]})
	}
	return out
}

// HandlerResolutionError reports an unknown handler id in one of the closed
// registries. For ids fixed at build time this indicates a programmer error;
// for ids originating from template JSON it is surfaced at preflight.
type HandlerResolutionError struct {
	Registry string
	ID       string
}

func (e *HandlerResolutionError) Error() string {
	return fmt.Sprintf("handler resolution failed: registry %q has no handler %q", e.Registry, e.ID)
}
