package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonTypeNumericJoin(t *testing.T) {
	k, err := CommonType(Integer, Real)
	require.NoError(t, err)
	assert.Equal(t, Real, k)

	k, err = CommonType(Real, Complex)
	require.NoError(t, err)
	assert.Equal(t, Complex, k)

	k, err = CommonType(Integer, Integer)
	require.NoError(t, err)
	assert.Equal(t, Integer, k)
}

func TestCommonTypeRejectsNonNumeric(t *testing.T) {
	_, err := CommonType(Boolean, Integer)
	assert.Error(t, err)

	_, err = CommonType(InfinityKind, Real)
	assert.Error(t, err)
}

func TestUndefinedType(t *testing.T) {
	assert.True(t, IsUndefined(UndefinedType))
	assert.True(t, IsUndefined(nil))
	assert.False(t, IsUndefined(IntConst()))
}

func TestArrayFlowDim(t *testing.T) {
	finite := Array{Shape: []Dim{3, 4}, Elem: Integer}
	assert.Equal(t, -1, finite.FlowDim())
	assert.Equal(t, 2, finite.Rank())

	infinite := Array{Shape: []Dim{3, Inf}, Elem: Real}
	assert.Equal(t, 1, infinite.FlowDim())
}

func TestDimString(t *testing.T) {
	assert.Equal(t, "inf", Inf.String())
	assert.Equal(t, "5", Dim(5).String())
}
