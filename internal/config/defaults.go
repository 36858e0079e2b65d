package config

import (
	"os"
	"path/filepath"
)

// defaultTree is the canonical shape of the configuration: every key that
// may legally appear in a drop-in or filter override exists here, and the
// type of each default is what overrides are type-checked against.
func defaultTree() map[string]any {
	return map[string]any{
		"security": map[string]any{
			"origin_mode":           "soft",
			"origin_missing_hard":   false,
			"token_ttl_seconds":     3600,
			"min_fill_seconds":      4,
			"max_form_age_seconds":  7200,
			"submission_token_mode": "hidden",
		},
		"spam": map[string]any{
			"honeypot_field":    "eforms_hp",
			"honeypot_response": "stealth_success",
			"js_check":          true,
		},
		"challenge": map[string]any{
			"mode":                 "off",
			"provider":             "",
			"site_key":             "",
			"secret_key":           "",
			"verify_url":           "",
			"http_timeout_seconds": 2,
		},
		"email": map[string]any{
			"from_address":       "",
			"display_format_tel": "digits",
		},
		"throttle": map[string]any{
			"enable":           true,
			"max_per_minute":   5,
			"cooldown_seconds": 300,
		},
		"logging": map[string]any{
			"mode":           "minimal",
			"level":          "info",
			"retention_days": 30,
			"fail2ban":       false,
		},
		"privacy": map[string]any{
			"ip_mode": "masked",
			"ip_salt": "",
		},
		"validation": map[string]any{
			"max_items_per_multivalue": 50,
		},
		"uploads": map[string]any{
			"dir":                defaultUploadsDir(),
			"max_file_bytes":     5242880,
			"max_request_bytes":  10485760,
			"max_files":          5,
			"original_max_chars": 64,
			"allowed_tokens":     []string{"image", "pdf"},
		},
		"install": map[string]any{
			"private_dir": filepath.Join(defaultUploadsDir(), "eforms-private"),
		},
	}
}

// defaultUploadsDir derives the uploads base directory from the environment,
// falling back to a path under the working directory.
func defaultUploadsDir() string {
	if dir := os.Getenv("EFORMS_UPLOADS_DIR"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "uploads"
	}
	return filepath.Join(wd, "uploads")
}

// enumValues is the static string-enum schema table: paths listed here are
// validated against a closed value set instead of plain string typing.
var enumValues = map[string][]string{
	"security.origin_mode":           {"off", "soft", "hard"},
	"security.submission_token_mode": {"hidden", "js"},
	"spam.honeypot_response":         {"stealth_success", "hard_fail"},
	"challenge.mode":                 {"off", "auto", "always_post"},
	"email.display_format_tel":       {"digits", "dashed", "paren"},
	"logging.mode":                   {"off", "minimal", "jsonl"},
	"logging.level":                  {"debug", "info", "warning", "error"},
	"privacy.ip_mode":                {"none", "masked", "hash", "full"},
}
