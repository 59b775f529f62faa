package ftdberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryDerivedFromCode(t *testing.T) {
	require.Equal(t, CategoryInput, New(CodeBadVal, "bad value").Category())
	require.Equal(t, CategoryResource, New(CodeTimedOut, "deadline exceeded").Category())
	require.Equal(t, CategoryInternal, New(CodeIndexCorrupt, "block checksum mismatch").Category())
}

func TestInternalErrorsObfuscateDetail(t *testing.T) {
	e := New(CodeIndexCorrupt, "block 3 checksum mismatch for term foo")
	require.NotContains(t, e.Error(), "checksum")
	require.Contains(t, e.Error(), string(CodeGeneric))
}

func TestInputErrorsSurfaceDetailVerbatim(t *testing.T) {
	e := New(CodeBadVal, "price must be numeric")
	require.Contains(t, e.Error(), "price must be numeric")
}

func TestWrapNilReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(CodeGeneric, nil))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(CodeGeneric, cause)
	require.ErrorIs(t, e, cause)
}

func TestIsMatchesByCodeNotDetail(t *testing.T) {
	a := New(CodeTimedOut, "query timed out after 500ms")
	b := New(CodeTimedOut, "a different message")
	c := New(CodeGeneric, "query timed out after 500ms")

	require.ErrorIs(t, a, b)
	require.False(t, errors.Is(a, c))
}

func TestWithPartialMarksPartial(t *testing.T) {
	e := New(CodeTimedOut, "deadline hit").WithPartial()
	require.True(t, IsPartial(e))
	require.False(t, IsPartial(New(CodeTimedOut, "x")))
	require.False(t, IsPartial(errors.New("plain")))
}

func TestIsInternal(t *testing.T) {
	require.True(t, IsInternal(New(CodeRefcountUnderflow, "x")))
	require.False(t, IsInternal(New(CodeBadVal, "x")))
	require.False(t, IsInternal(errors.New("plain")))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeNoResults, CodeOf(New(CodeNoResults, "")))
	require.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestAggregateShardErrorsNilWhenEmpty(t *testing.T) {
	require.Nil(t, AggregateShardErrors(nil))
}

func TestAggregateShardErrorsNamesFirstFailureAndCount(t *testing.T) {
	errs := []error{errors.New("shard 2 unreachable"), errors.New("shard 5 timeout")}
	agg := AggregateShardErrors(errs)
	require.Equal(t, CodeGeneric, agg.Code)
	require.Contains(t, agg.Detail, "2 shard(s) failed")
	require.Contains(t, agg.Detail, "shard 2 unreachable")
	require.ErrorIs(t, agg, errs[0])
}
