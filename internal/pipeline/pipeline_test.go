package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
	"github.com/eforms/eforms/internal/template"
)

func testContext(t *testing.T, tpl *template.Template) *Context {
	t.Helper()
	return &Context{Template: tpl, Config: config.Default()}
}

func contactTemplate() *template.Template {
	return &template.Template{
		ID: "contact",
		Fields: []template.Field{
			{Key: "name", Type: "text", Label: "Name", Required: true},
			{Key: "email", Type: "email", Label: "Email", Required: true},
			{Key: "state", Type: "text", Label: "State"},
			{Key: "city", Type: "text", Label: "City"},
			{Key: "county", Type: "text", Label: "County"},
		},
	}
}

func TestCanonicalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim", "  hello  ", "hello"},
		{"crlf", "a\r\nb", "a\nb"},
		{"bare cr", "a\rb", "a\nb"},
		{"escaped quote", `it\'s`, "it's"},
		{"escaped backslash", `a\\b`, `a\b`},
		{"escaped nul dropped", `a\0b`, "ab"},
		{"nfc", "e\u0301", "\u00e9"},
		{"already clean", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalizeText(tt.in))
		})
	}
}

func TestCanonicalizeTextIdempotent(t *testing.T) {
	inputs := []string{"  x  ", "a\r\nb", `it\'s`, "e\u0301", "plain"}
	for _, in := range inputs {
		once := CanonicalizeText(in)
		assert.Equal(t, once, CanonicalizeText(once), "input %q", in)
	}
}

func TestNormalizeScalarShapes(t *testing.T) {
	ctx := testContext(t, contactTemplate())

	values := Normalize(ctx, map[string][]string{
		"name":  {"  Ada  "},
		"email": {"ada@example.com"},
		"state": {""},
	}, nil)

	assert.Equal(t, fields.NewScalar("Ada"), values["name"])
	assert.Equal(t, fields.NewScalar("ada@example.com"), values["email"])
	// Empty string and missing both normalize to Absent.
	assert.True(t, values["state"].IsAbsent())
	assert.True(t, values["city"].IsAbsent())
}

func TestNormalizePreservesForeignArrayShape(t *testing.T) {
	// Two raw entries for a single-value field stay a list so Validate can
	// reject the shape instead of silently picking one.
	ctx := testContext(t, contactTemplate())
	values := Normalize(ctx, map[string][]string{"name": {"a", "b"}}, nil)
	assert.Equal(t, fields.KindScalarList, values["name"].Kind())

	result := Validate(ctx, values)
	require.False(t, result.OK)
	assert.Equal(t, errors.CodeSchemaType, result.Bag.Field("name")[0].Code)
}

func TestNormalizeMultivalueDropsEmptyEntries(t *testing.T) {
	tpl := &template.Template{
		Fields: []template.Field{
			{Key: "tags", Type: "checkbox", Label: "Tags", Options: []template.Option{
				{Key: "a", Label: "A"}, {Key: "b", Label: "B"},
			}},
		},
	}
	ctx := testContext(t, tpl)

	values := Normalize(ctx, map[string][]string{"tags": {"a", "", "b"}}, nil)
	assert.Equal(t, []string{"a", "b"}, values["tags"].List())

	values = Normalize(ctx, map[string][]string{"tags": {"", ""}}, nil)
	assert.True(t, values["tags"].IsAbsent())
}

func TestNormalizeUploads(t *testing.T) {
	tpl := &template.Template{
		Fields: []template.Field{
			{Key: "doc", Type: "file", Label: "Doc"},
		},
	}
	ctx := testContext(t, tpl)

	values := Normalize(ctx, nil, map[string][]RawUpload{
		"doc": {
			{TmpName: "/tmp/u1", Name: "../secret/../../report final.pdf", Size: 100},
			{Name: "ignored", Error: UploadErrNoFile},
		},
	})
	v := values["doc"]
	require.Equal(t, fields.KindUpload, v.Kind())
	assert.Equal(t, "report final.pdf", v.Upload().OriginalNameSafe)
	assert.Equal(t, "../secret/../../report final.pdf", v.Upload().OriginalName)

	// All no-file entries collapse to Absent.
	values = Normalize(ctx, nil, map[string][]RawUpload{
		"doc": {{Error: UploadErrNoFile}},
	})
	assert.True(t, values["doc"].IsAbsent())
}

func TestNormalizeSingleUploadIntoMultivalueField(t *testing.T) {
	tpl := &template.Template{
		Fields: []template.Field{
			{Key: "docs", Type: "files", Label: "Docs"},
		},
	}
	ctx := testContext(t, tpl)

	// One file posted to a multivalue field is still a one-element list,
	// never a bare upload.
	values := Normalize(ctx, nil, map[string][]RawUpload{
		"docs": {{TmpName: "/tmp/u1", Name: "report.pdf", Size: 100}},
	})
	v := values["docs"]
	require.Equal(t, fields.KindUploadList, v.Kind())
	require.Len(t, v.Uploads(), 1)
	assert.Equal(t, "report.pdf", v.Uploads()[0].OriginalNameSafe)

	result := Validate(ctx, values)
	assert.True(t, result.OK, "errors=%v", result.Bag.Export())
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"plain", "report.pdf", 64, "report.pdf"},
		{"path stripped", "/etc/passwd", 64, "passwd"},
		{"windows path", `C:\Users\x\cv.pdf`, 64, "cv.pdf"},
		{"control chars", "re\x00port\x1f.pdf", 64, "report.pdf"},
		{"whitespace collapsed", "my   report.pdf", 64, "my report.pdf"},
		{"dot runs", "report...pdf", 64, "report.pdf"},
		{"emptied", "...", 64, "file"},
		{"truncated keeps ext", "abcdefghijklmnop.pdf", 10, "abcdef.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.in, tt.max))
		})
	}
}

func TestValidateRequired(t *testing.T) {
	ctx := testContext(t, contactTemplate())
	values := Normalize(ctx, map[string][]string{"name": {"Ada"}}, nil)

	result := Validate(ctx, values)
	require.False(t, result.OK)
	entries := result.Bag.Field("email")
	require.Len(t, entries, 1)
	assert.Equal(t, errors.CodeSchemaRequired, entries[0].Code)
	// Optional absent fields are clean.
	assert.Empty(t, result.Bag.Field("state"))
}

func TestValidateErrorOrdering(t *testing.T) {
	// Global entries come first, then fields in declaration order, never in
	// detection or alphabetical order.
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "one_of", Fields: []string{"state", "city"}},
	}
	ctx := testContext(t, tpl)

	values := Normalize(ctx, map[string][]string{"email": {"nope"}}, nil)
	result := Validate(ctx, values)
	require.False(t, result.OK)

	keys := result.Bag.Keys()
	assert.Equal(t, []string{errors.GlobalKey, "name", "email"}, keys)
	assert.Equal(t, errors.CodeSchemaRequired, result.Bag.Field(errors.GlobalKey)[0].Code)
}

func TestValidateDeterministic(t *testing.T) {
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "one_of", Fields: []string{"state", "city"}},
		{Rule: "matches", Target: "county", Field: "city"},
	}
	ctx := testContext(t, tpl)
	post := map[string][]string{
		"email":  {"not-an-email"},
		"city":   {"Springfield"},
		"county": {"Shelby"},
	}

	first, err := json.Marshal(Validate(ctx, Normalize(ctx, post, nil)).Bag.Export())
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		next, err := json.Marshal(Validate(ctx, Normalize(ctx, post, nil)).Bag.Export())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(next))
	}
}

func TestValidateTwoRequiredIfRulesSameTrigger(t *testing.T) {
	// Two required_if rules firing on the same trigger value each contribute
	// their own entry, in rule order, undeduplicated.
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "required_if", Target: "city", Field: "state", Equals: "CA"},
		{Rule: "required_if", Target: "county", Field: "state", Equals: "CA"},
		{Rule: "required_if", Target: "city", Field: "state", Equals: "CA"},
	}
	ctx := testContext(t, tpl)

	values := Normalize(ctx, map[string][]string{
		"name":  {"Ada"},
		"email": {"ada@example.com"},
		"state": {"CA"},
	}, nil)
	result := Validate(ctx, values)
	require.False(t, result.OK)

	city := result.Bag.Field("city")
	require.Len(t, city, 2)
	assert.Equal(t, errors.CodeSchemaRequired, city[0].Code)
	assert.Equal(t, errors.CodeSchemaRequired, city[1].Code)
	require.Len(t, result.Bag.Field("county"), 1)
}

func TestValidateRequiredUnless(t *testing.T) {
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "required_unless", Target: "city", Field: "state", Equals: "none"},
	}
	ctx := testContext(t, tpl)
	base := map[string][]string{"name": {"Ada"}, "email": {"ada@example.com"}}

	// Trigger not equal (absent counts as not-equal): target required.
	result := Validate(ctx, Normalize(ctx, base, nil))
	require.False(t, result.OK)
	assert.Equal(t, errors.CodeSchemaRequired, result.Bag.Field("city")[0].Code)

	// Trigger equals the literal: target may stay absent.
	withState := map[string][]string{"name": {"Ada"}, "email": {"ada@example.com"}, "state": {"none"}}
	assert.True(t, Validate(ctx, Normalize(ctx, withState, nil)).OK)
}

func TestValidateMatches(t *testing.T) {
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "matches", Target: "county", Field: "city"},
	}
	ctx := testContext(t, tpl)
	base := map[string][]string{"name": {"Ada"}, "email": {"ada@example.com"}}

	// Both absent: no-op.
	assert.True(t, Validate(ctx, Normalize(ctx, base, nil)).OK)

	// One absent: no-op.
	base["city"] = []string{"Springfield"}
	assert.True(t, Validate(ctx, Normalize(ctx, base, nil)).OK)

	// Both present, unequal: defect lands on the target.
	base["county"] = []string{"Shelby"}
	result := Validate(ctx, Normalize(ctx, base, nil))
	require.False(t, result.OK)
	assert.Equal(t, errors.CodeSchemaType, result.Bag.Field("county")[0].Code)
	assert.Empty(t, result.Bag.Field("city"))

	// Equal: clean.
	base["county"] = []string{"Springfield"}
	assert.True(t, Validate(ctx, Normalize(ctx, base, nil)).OK)
}

func TestValidateGlobalRulesKeepDeclaredOrder(t *testing.T) {
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "one_of", Fields: []string{"state", "city"}},
		{Rule: "mutually_exclusive", Fields: []string{"name", "email"}},
	}
	ctx := testContext(t, tpl)

	values := Normalize(ctx, map[string][]string{
		"name":  {"Ada"},
		"email": {"ada@example.com"},
	}, nil)
	result := Validate(ctx, values)
	require.False(t, result.OK)

	globals := result.Bag.Field(errors.GlobalKey)
	require.Len(t, globals, 2)
	assert.Equal(t, errors.CodeSchemaRequired, globals[0].Code)
	assert.Equal(t, errors.CodeSchemaType, globals[1].Code)
}

func TestValidateRulesIgnoreUndeclaredFields(t *testing.T) {
	tpl := contactTemplate()
	tpl.Rules = []template.Rule{
		{Rule: "required_if", Target: "ghost", Field: "state", Equals: "CA"},
		{Rule: "required_if", Target: "city", Field: "ghost", Equals: "CA"},
		{Rule: "one_of", Fields: []string{"ghost", "phantom"}},
	}
	ctx := testContext(t, tpl)

	values := Normalize(ctx, map[string][]string{
		"name":  {"Ada"},
		"email": {"ada@example.com"},
		"state": {"CA"},
	}, nil)
	assert.True(t, Validate(ctx, values).OK)
}

func TestCoerceEmailDomain(t *testing.T) {
	ctx := testContext(t, contactTemplate())
	values := fields.Values{
		"name":   fields.NewScalar("Ada"),
		"email":  fields.NewScalar("Ada.Lovelace@EXAMPLE.COM"),
		"state":  fields.Absent(),
		"city":   fields.Absent(),
		"county": fields.Absent(),
	}
	out := Coerce(ctx, values)
	// Local part is case-significant and untouched.
	assert.Equal(t, "Ada.Lovelace@example.com", out["email"].Scalar())
}

func TestCoerceTelUS(t *testing.T) {
	tpl := &template.Template{
		Fields: []template.Field{{Key: "phone", Type: "tel_us", Label: "Phone"}},
	}
	ctx := testContext(t, tpl)

	tests := []struct {
		in   string
		want string
	}{
		{"(555) 123-4567", "5551234567"},
		{"1-555-123-4567", "5551234567"},
		{"5551234567", "5551234567"},
	}
	for _, tt := range tests {
		out := Coerce(ctx, fields.Values{"phone": fields.NewScalar(tt.in)})
		assert.Equal(t, tt.want, out["phone"].Scalar())
	}
}

func TestCoerceCanonicalizeCollapsesWhitespace(t *testing.T) {
	tpl := &template.Template{
		Fields: []template.Field{{Key: "full", Type: "name", Label: "Name"}},
	}
	ctx := testContext(t, tpl)
	out := Coerce(ctx, fields.Values{"full": fields.NewScalar("Ada   Byron  Lovelace")})
	assert.Equal(t, "Ada Byron Lovelace", out["full"].Scalar())
}

func TestCoerceIdempotent(t *testing.T) {
	tpl := &template.Template{
		Fields: []template.Field{
			{Key: "email", Type: "email", Label: "Email"},
			{Key: "phone", Type: "tel_us", Label: "Phone"},
			{Key: "full", Type: "name", Label: "Name"},
		},
	}
	ctx := testContext(t, tpl)
	values := fields.Values{
		"email": fields.NewScalar("X@EXAMPLE.COM"),
		"phone": fields.NewScalar("1 (555) 123-4567"),
		"full":  fields.NewScalar("Ada   Lovelace"),
	}

	once := Coerce(ctx, values)
	twice := Coerce(ctx, once)
	for key, v := range once {
		assert.True(t, v.Equal(twice[key]), key)
	}
}

func TestPipelineRoundTripStable(t *testing.T) {
	// Canonical input survives the full Normalize/Validate/Coerce chain
	// unchanged, so re-running the pipeline over its own output is a no-op.
	tpl := &template.Template{
		Fields: []template.Field{
			{Key: "name", Type: "name", Label: "Name", Required: true},
			{Key: "email", Type: "email", Label: "Email", Required: true},
			{Key: "phone", Type: "tel_us", Label: "Phone"},
		},
	}
	ctx := testContext(t, tpl)
	post := map[string][]string{
		"name":  {"  Ada   Lovelace "},
		"email": {"Ada@EXAMPLE.COM"},
		"phone": {"1 (555) 123-4567"},
	}

	result := Validate(ctx, Normalize(ctx, post, nil))
	require.True(t, result.OK)
	coerced := Coerce(ctx, result.Values)

	replay := map[string][]string{}
	for _, f := range tpl.InputFields() {
		replay[f.Key] = coerced[f.Key].Scalars()
	}
	second := Validate(ctx, Normalize(ctx, replay, nil))
	require.True(t, second.OK)
	again := Coerce(ctx, second.Values)
	for key, v := range coerced {
		assert.True(t, v.Equal(again[key]), key)
	}
}
