package registry

import (
	"fmt"
	"net/mail"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/idna"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
)

var zipUSPattern = regexp.MustCompile(`^[0-9]{5}$`)

func validateText(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		if spec.MaxLength > 0 && len([]rune(s)) > spec.MaxLength {
			bag.Add(spec.Key, errors.CodeSchemaType, fmt.Sprintf("value exceeds %d characters", spec.MaxLength))
		}
	}
}

// validateEmail accepts RFC 5322 addr-spec addresses without display names.
// The domain must survive an IDNA lookup-mode conversion so raw unicode
// domains that cannot map to ASCII are rejected here, not at dispatch time.
func validateEmail(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			bag.Add(spec.Key, errors.CodeSchemaType, "invalid email address")
			continue
		}
		at := strings.LastIndex(s, "@")
		domain := s[at+1:]
		if _, err := idna.Lookup.ToASCII(domain); err != nil {
			bag.Add(spec.Key, errors.CodeSchemaType, "invalid email domain")
		}
	}
}

func validateURL(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		parsed, err := url.Parse(s)
		if err != nil || parsed.Host == "" {
			bag.Add(spec.Key, errors.CodeSchemaType, "invalid URL")
			continue
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			bag.Add(spec.Key, errors.CodeSchemaType, "URL scheme must be http or https")
		}
	}
}

// validateTel is the generic phone check: 7 to 15 digits after stripping
// separators.
func validateTel(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		digits := stripNonDigits(s)
		if len(digits) < 7 || len(digits) > 15 {
			bag.Add(spec.Key, errors.CodeSchemaType, "invalid phone number")
		}
	}
}

// validateTelUS requires exactly 10 digits after stripping non-digits and
// an optional leading country-code 1.
func validateTelUS(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		digits := stripNonDigits(s)
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) != 10 {
			bag.Add(spec.Key, errors.CodeSchemaType, "US phone numbers need 10 digits")
		}
	}
}

func validateNumber(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bag.Add(spec.Key, errors.CodeSchemaType, "not a number")
			continue
		}
		if spec.Min != nil && n < *spec.Min {
			bag.Add(spec.Key, errors.CodeSchemaType, fmt.Sprintf("below minimum %v", *spec.Min))
		}
		if spec.Max != nil && n > *spec.Max {
			bag.Add(spec.Key, errors.CodeSchemaType, fmt.Sprintf("above maximum %v", *spec.Max))
		}
	}
}

// validateDate accepts strict YYYY-MM-DD only.
func validateDate(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		if len(s) != 10 {
			bag.Add(spec.Key, errors.CodeSchemaType, "date must be YYYY-MM-DD")
			continue
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			bag.Add(spec.Key, errors.CodeSchemaType, "date must be YYYY-MM-DD")
		}
	}
}

func validateZipUS(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		if !zipUSPattern.MatchString(s) {
			bag.Add(spec.Key, errors.CodeSchemaType, "ZIP code must be 5 digits")
		}
	}
}

// validateOptions checks membership in the field's declared, non-disabled
// option keys.
func validateOptions(v fields.Value, _ *fields.Descriptor, spec fields.Spec, _ *config.Config, bag *errors.Bag, _ *UploadState) {
	for _, s := range v.Scalars() {
		if !containsString(spec.OptionKeys, s) {
			bag.Add(spec.Key, errors.CodeSchemaEnum, "value is not an allowed option")
		}
	}
}

// validateOptionsMulti checks each entry's membership and caps the list
// length against the configured max-items bound.
func validateOptionsMulti(v fields.Value, _ *fields.Descriptor, spec fields.Spec, cfg *config.Config, bag *errors.Bag, _ *UploadState) {
	entries := v.Scalars()
	if max := cfg.Validation.MaxItemsPerMultivalue; max > 0 && len(entries) > max {
		bag.Add(spec.Key, errors.CodeSchemaType, fmt.Sprintf("at most %d selections allowed", max))
	}
	for _, s := range entries {
		if !containsString(spec.OptionKeys, s) {
			bag.Add(spec.Key, errors.CodeSchemaEnum, "value is not an allowed option")
		}
	}
}

// acceptTokens maps an accept-token to the file extensions it admits.
// Tokens are intersected with the deployment's allowed set at resolution.
var acceptTokens = map[string][]string{
	"image": {".jpg", ".jpeg", ".png", ".gif", ".webp"},
	"pdf":   {".pdf"},
	"doc":   {".doc", ".docx", ".odt"},
	"text":  {".txt", ".csv"},
}

// resolveAccept intersects a field's accept tokens with the configured
// allowed tokens and flattens to an extension set. An empty field list
// inherits the full configured set.
func resolveAccept(spec fields.Spec, cfg *config.Config) []string {
	tokens := spec.Accept
	if len(tokens) == 0 {
		tokens = cfg.Uploads.AllowedTokens
	}
	var exts []string
	for _, tok := range tokens {
		if !containsString(cfg.Uploads.AllowedTokens, tok) {
			continue
		}
		exts = append(exts, acceptTokens[tok]...)
	}
	return exts
}

// validateFile enforces the resolved accept policy plus per-file, per-field
// count, and request-aggregate byte caps. The aggregate cap runs against
// the shared UploadState so it spans every upload field of the submission.
func validateFile(v fields.Value, d *fields.Descriptor, spec fields.Spec, cfg *config.Config, bag *errors.Bag, state *UploadState) {
	items := v.Uploads()
	exts := resolveAccept(spec, cfg)
	if len(exts) == 0 {
		bag.Add(spec.Key, errors.CodeAcceptEmpty, "no permitted file types for this field")
		return
	}
	if max := cfg.Uploads.MaxFiles; d.IsMultivalue && max > 0 && len(items) > max {
		bag.Add(spec.Key, errors.CodeUploadType, fmt.Sprintf("at most %d files allowed", max))
	}
	for _, item := range items {
		// "No file" entries are already dropped during normalization; any
		// remaining transport error means a broken upload.
		if item.Error != 0 {
			bag.Add(spec.Key, errors.CodeUploadType, "file upload failed")
			continue
		}
		ext := strings.ToLower(filepath.Ext(item.OriginalNameSafe))
		if !containsString(exts, ext) {
			bag.Add(spec.Key, errors.CodeUploadType, "file type is not permitted")
		}
		if max := int64(cfg.Uploads.MaxFileBytes); max > 0 && item.Size > max {
			bag.Add(spec.Key, errors.CodeUploadType, fmt.Sprintf("file exceeds %d bytes", max))
		}
		state.TotalBytes += item.Size
	}
	if max := int64(cfg.Uploads.MaxRequestBytes); max > 0 && state.TotalBytes > max {
		bag.Add(spec.Key, errors.CodeUploadType, "uploads exceed the request size limit")
	}
}

func stripNonDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func containsString(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}
