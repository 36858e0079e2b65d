package config

// Config is the fully-materialized per-request settings snapshot. Every
// field is backed by a row in the defaults tree; numeric fields governed by
// an anchor are guaranteed to lie inside the anchor's bound after bootstrap.
type Config struct {
	Security   SecurityConfig   `mapstructure:"security"`
	Spam       SpamConfig       `mapstructure:"spam"`
	Challenge  ChallengeConfig  `mapstructure:"challenge"`
	Email      EmailConfig      `mapstructure:"email"`
	Throttle   ThrottleConfig   `mapstructure:"throttle"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Privacy    PrivacyConfig    `mapstructure:"privacy"`
	Validation ValidationConfig `mapstructure:"validation"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	Install    InstallConfig    `mapstructure:"install"`
}

type SecurityConfig struct {
	OriginMode          string `mapstructure:"origin_mode"` // off|soft|hard
	OriginMissingHard   bool   `mapstructure:"origin_missing_hard"`
	TokenTTLSeconds     int    `mapstructure:"token_ttl_seconds"`
	MinFillSeconds      int    `mapstructure:"min_fill_seconds"`
	MaxFormAgeSeconds   int    `mapstructure:"max_form_age_seconds"`
	SubmissionTokenMode string `mapstructure:"submission_token_mode"` // hidden|js
}

type SpamConfig struct {
	HoneypotField    string `mapstructure:"honeypot_field"`
	HoneypotResponse string `mapstructure:"honeypot_response"` // stealth_success|hard_fail
	JSCheck          bool   `mapstructure:"js_check"`
}

type ChallengeConfig struct {
	Mode               string `mapstructure:"mode"` // off|auto|always_post
	Provider           string `mapstructure:"provider"`
	SiteKey            string `mapstructure:"site_key"`
	SecretKey          string `mapstructure:"secret_key"`
	VerifyURL          string `mapstructure:"verify_url"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
}

type EmailConfig struct {
	FromAddress      string `mapstructure:"from_address"`
	DisplayFormatTel string `mapstructure:"display_format_tel"` // digits|dashed|paren
}

type ThrottleConfig struct {
	Enable          bool `mapstructure:"enable"`
	MaxPerMinute    int  `mapstructure:"max_per_minute"`
	CooldownSeconds int  `mapstructure:"cooldown_seconds"`
}

type LoggingConfig struct {
	Mode          string `mapstructure:"mode"` // off|minimal|jsonl
	Level         string `mapstructure:"level"`
	RetentionDays int    `mapstructure:"retention_days"`
	Fail2ban      bool   `mapstructure:"fail2ban"`
}

type PrivacyConfig struct {
	IPMode string `mapstructure:"ip_mode"` // none|masked|hash|full
	IPSalt string `mapstructure:"ip_salt"`
}

type ValidationConfig struct {
	MaxItemsPerMultivalue int `mapstructure:"max_items_per_multivalue"`
}

type UploadsConfig struct {
	Dir              string   `mapstructure:"dir"`
	MaxFileBytes     int      `mapstructure:"max_file_bytes"`
	MaxRequestBytes  int      `mapstructure:"max_request_bytes"`
	MaxFiles         int      `mapstructure:"max_files"`
	OriginalMaxChars int      `mapstructure:"original_max_chars"`
	AllowedTokens    []string `mapstructure:"allowed_tokens"`
}

type InstallConfig struct {
	PrivateDir string `mapstructure:"private_dir"`
}

// Clone returns a deep copy. Get hands out clones so no caller can corrupt
// the frozen snapshot through shared slices.
func (c *Config) Clone() *Config {
	out := *c
	if c.Uploads.AllowedTokens != nil {
		out.Uploads.AllowedTokens = append([]string(nil), c.Uploads.AllowedTokens...)
	}
	return &out
}
