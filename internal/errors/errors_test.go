package errors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagGlobalAlwaysPresent(t *testing.T) {
	bag := NewBag()
	assert.Equal(t, []string{GlobalKey}, bag.Keys())
	assert.False(t, bag.HasErrors())
	assert.Empty(t, bag.Field(GlobalKey))
}

func TestBagKeyOrderFollowsInsertion(t *testing.T) {
	bag := NewBag()
	bag.Add("zulu", CodeSchemaRequired, "")
	bag.Add("alpha", CodeSchemaType, "")
	bag.Add("zulu", CodeSchemaEnum, "")

	// Never alphabetical, never detection order across fields: _global
	// first, then first-insertion order.
	assert.Equal(t, []string{GlobalKey, "zulu", "alpha"}, bag.Keys())
	require.Len(t, bag.Field("zulu"), 2)
	assert.Equal(t, CodeSchemaRequired, bag.Field("zulu")[0].Code)
	assert.Equal(t, CodeSchemaEnum, bag.Field("zulu")[1].Code)
}

func TestBagReservePinsOrder(t *testing.T) {
	bag := NewBag()
	bag.Reserve("first")
	bag.Reserve("second")
	bag.Add("second", CodeSchemaType, "")
	bag.Add("first", CodeSchemaType, "")

	assert.Equal(t, []string{GlobalKey, "first", "second"}, bag.Keys())
}

func TestBagReserveEmptySkippedInKeys(t *testing.T) {
	bag := NewBag()
	bag.Reserve("untouched")
	bag.Add("hit", CodeSchemaType, "")

	assert.Equal(t, []string{GlobalKey, "hit"}, bag.Keys())
}

func TestBagMergePreservesOrder(t *testing.T) {
	a := NewBag()
	a.Add("one", CodeSchemaType, "a")
	b := NewBag()
	b.AddGlobal(CodeSchemaRequired, "g")
	b.Add("two", CodeSchemaEnum, "b")

	a.Merge(b)
	assert.Equal(t, []string{GlobalKey, "one", "two"}, a.Keys())
	assert.Equal(t, CodeSchemaRequired, a.Field(GlobalKey)[0].Code)
}

func TestBagExportDeterministic(t *testing.T) {
	build := func() *Bag {
		bag := NewBag()
		bag.AddGlobal(CodeSchemaRequired, "at least one required")
		bag.Add("email", CodeSchemaType, "invalid email address")
		bag.Add("state", CodeSchemaRequired, "required")
		bag.Add("state", CodeSchemaRequired, "required")
		return bag
	}
	first, err := json.Marshal(build().Export())
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		next, err := json.Marshal(build().Export())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(next))
	}
}

func TestUserFacing(t *testing.T) {
	assert.True(t, UserFacing(CodeToken))
	assert.True(t, UserFacing(CodeSchemaRequired))
	assert.False(t, UserFacing(CodeSchemaDupKey))
	assert.False(t, UserFacing(CodeLedgerIO))
}

func TestHandlerResolutionError(t *testing.T) {
	err := &HandlerResolutionError{Registry: "validator", ID: "nope"}
	assert.Contains(t, err.Error(), "validator")
	assert.Contains(t, err.Error(), "nope")
}
