package machine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/machine"
)

func TestValueTruth(t *testing.T) {
	assert.False(t, machine.Nil.Truth())
	assert.False(t, machine.Undef.Truth())
	assert.False(t, machine.False.Truth())
	assert.True(t, machine.True.Truth())
	assert.True(t, machine.Int64(0).Truth())
}

func TestValueEqualNumericCrossTag(t *testing.T) {
	assert.True(t, machine.Equal(machine.Int64(2), machine.Float64(2.0)))
	assert.False(t, machine.Equal(machine.Int64(2), machine.Float64(2.5)))
}

func TestValueEqualStringByContent(t *testing.T) {
	a := machine.NewArena()
	s1, err := a.NewString([]byte("hi"))
	require.NoError(t, err)
	s2, err := a.NewString([]byte("hi"))
	require.NoError(t, err)
	v1, v2 := machine.WrapString(s1), machine.WrapString(s2)
	assert.NotSame(t, v1.Ptr(), v2.Ptr(), "distinct allocations")
	assert.True(t, machine.Equal(v1, v2), "strings compare by content, not identity")
}

func TestValueEqualHeapIdentity(t *testing.T) {
	a := machine.NewArena()
	arr1, err := a.NewArray(nil)
	require.NoError(t, err)
	arr2, err := a.NewArray(nil)
	require.NoError(t, err)
	v1, v2 := machine.WrapArray(arr1), machine.WrapArray(arr2)
	assert.False(t, machine.Equal(v1, v2), "two empty arrays are distinct objects")
	assert.True(t, machine.Equal(v1, v1))
}

func TestValueCompare(t *testing.T) {
	c, ok := machine.Compare(machine.Int64(1), machine.Int64(2))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = machine.Compare(machine.Float64(2), machine.Int64(2))
	require.True(t, ok)
	assert.Equal(t, 0, c)

	_, ok = machine.Compare(machine.Int64(1), machine.Bool(true))
	assert.False(t, ok)
}

func TestValueStringRendering(t *testing.T) {
	assert.Equal(t, "nil", machine.Nil.String())
	assert.Equal(t, "42", machine.Int64(42).String())
	assert.Equal(t, "true", machine.True.String())
}
