package errors

import "strings"

// userFacingPrefix marks codes that may be shown to submitters. Everything
// else is log-only.
const userFacingPrefix = "EFORMS_ERR_"

// User-facing rejection codes. The set is append-only: codes are part of
// the external contract and never renamed or reused.
const (
	CodeToken              = "EFORMS_ERR_TOKEN"
	CodeOriginForbidden    = "EFORMS_ERR_ORIGIN_FORBIDDEN"
	CodeHoneypot           = "EFORMS_ERR_HONEYPOT"
	CodeThrottled          = "EFORMS_ERR_THROTTLED"
	CodeChallengeFailed    = "EFORMS_ERR_CHALLENGE_FAILED"
	CodeMethodNotAllowed   = "EFORMS_ERR_METHOD_NOT_ALLOWED"
	CodeInvalidFormID      = "EFORMS_ERR_INVALID_FORM_ID"
	CodeType               = "EFORMS_ERR_TYPE"
	CodeMintFailed         = "EFORMS_ERR_MINT_FAILED"
	CodeSchemaType         = "EFORMS_ERR_SCHEMA_TYPE"
	CodeSchemaRequired     = "EFORMS_ERR_SCHEMA_REQUIRED"
	CodeSchemaEnum         = "EFORMS_ERR_SCHEMA_ENUM"
	CodeUploadType         = "EFORMS_ERR_UPLOAD_TYPE"
	CodeAcceptEmpty        = "EFORMS_ERR_ACCEPT_EMPTY"
	CodeStorageUnavailable = "EFORMS_ERR_STORAGE_UNAVAILABLE"
)

// Template preflight defect codes, surfaced to template authors through
// tooling, never to submitters.
const (
	CodeSchemaUnknownKey   = "SCHEMA_UNKNOWN_KEY"
	CodeSchemaRequiredKey  = "SCHEMA_REQUIRED"
	CodeSchemaBadType      = "SCHEMA_TYPE"
	CodeSchemaBadEnum      = "SCHEMA_ENUM"
	CodeSchemaDupKey       = "SCHEMA_DUP_KEY"
	CodeSchemaKey          = "SCHEMA_KEY"
	CodeSchemaObject       = "SCHEMA_OBJECT"
	CodeRowGroupUnbalanced = "ROW_GROUP_UNBALANCED"
)

// Internal operational event codes, emitted through the logging Event
// contract only.
const (
	CodeChallengeUnconfigured = "CHALLENGE_UNCONFIGURED"
	CodeFinfoUnavailable      = "FINFO_UNAVAILABLE"
	CodeLedgerIO              = "LEDGER_IO"
	CodeFail2banIO            = "FAIL2BAN_IO"
	CodeConfigDropinDiscarded = "CONFIG_DROPIN_DISCARDED"
	CodeConfigDropinRejected  = "CONFIG_DROPIN_KEY_REJECTED"
	CodeConfigAnchorMissing   = "CONFIG_ANCHOR_MISSING"
	CodeStorageHealthFailed   = "STORAGE_HEALTH_FAILED"
	CodeThrottleLockFailed    = "THROTTLE_LOCK_FAILED"
	CodeTokenStoreIO          = "TOKEN_STORE_IO"
)

// All is the closed code set, consulted by the debug-mode tripwire in Bag.
var All = map[string]bool{
	CodeToken:              true,
	CodeOriginForbidden:    true,
	CodeHoneypot:           true,
	CodeThrottled:          true,
	CodeChallengeFailed:    true,
	CodeMethodNotAllowed:   true,
	CodeInvalidFormID:      true,
	CodeType:               true,
	CodeMintFailed:         true,
	CodeSchemaType:         true,
	CodeSchemaRequired:     true,
	CodeSchemaEnum:         true,
	CodeUploadType:         true,
	CodeAcceptEmpty:        true,
	CodeStorageUnavailable: true,

	CodeSchemaUnknownKey:   true,
	CodeSchemaRequiredKey:  true,
	CodeSchemaBadType:      true,
	CodeSchemaBadEnum:      true,
	CodeSchemaDupKey:       true,
	CodeSchemaKey:          true,
	CodeSchemaObject:       true,
	CodeRowGroupUnbalanced: true,

	CodeChallengeUnconfigured: true,
	CodeFinfoUnavailable:      true,
	CodeLedgerIO:              true,
	CodeFail2banIO:            true,
	CodeConfigDropinDiscarded: true,
	CodeConfigDropinRejected:  true,
	CodeConfigAnchorMissing:   true,
	CodeStorageHealthFailed:   true,
	CodeThrottleLockFailed:    true,
	CodeTokenStoreIO:          true,
}

// UserFacing reports whether a code may be rendered to the submitter.
func UserFacing(code string) bool {
	return strings.HasPrefix(code, userFacingPrefix)
}
