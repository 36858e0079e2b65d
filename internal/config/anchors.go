package config

// Anchor is a fixed [Min, Max] bound for a numeric configuration value,
// defined outside user control. Anchors are consulted only by the clamp step
// of bootstrap; they are never parsed from any external document at runtime.
type Anchor struct {
	Min int
	Max int
}

// anchors maps a config path to its bound. The table is static: adding a
// numeric setting that needs bounding means adding a row here.
var anchors = map[string]Anchor{
	"security.token_ttl_seconds":          {Min: 300, Max: 86400},
	"security.min_fill_seconds":           {Min: 0, Max: 60},
	"security.max_form_age_seconds":       {Min: 600, Max: 86400},
	"challenge.http_timeout_seconds":      {Min: 1, Max: 5},
	"throttle.max_per_minute":             {Min: 1, Max: 600},
	"throttle.cooldown_seconds":           {Min: 10, Max: 3600},
	"validation.max_items_per_multivalue": {Min: 1, Max: 100},
	"uploads.max_file_bytes":              {Min: 1024, Max: 26214400},
	"uploads.max_request_bytes":           {Min: 1024, Max: 52428800},
	"uploads.max_files":                   {Min: 1, Max: 20},
	"uploads.original_max_chars":          {Min: 8, Max: 128},
	"logging.retention_days":              {Min: 1, Max: 90},
}

// GetAnchor looks up the bound for a config path. A miss returns ok=false;
// the caller logs the dev-mode warning and fails closed to the default.
func GetAnchor(name string) (Anchor, bool) {
	a, ok := anchors[name]
	return a, ok
}

// Clamp forces v into the anchor's bound.
func (a Anchor) Clamp(v int) int {
	if v < a.Min {
		return a.Min
	}
	if v > a.Max {
		return a.Max
	}
	return v
}
