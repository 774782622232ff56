package deepcopy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/deepcopy"
	"github.com/mna/glade/lang/machine"
)

func TestCopyImmediateValuesAreUnchanged(t *testing.T) {
	dest := machine.NewArena()
	cp, err := deepcopy.New(dest).Copy(machine.Int64(42))
	require.NoError(t, err)
	assert.True(t, machine.Equal(machine.Int64(42), cp))
	assert.EqualValues(t, 0, dest.Used(), "immediates never touch the destination arena")
}

func TestCopyStringIsStructural(t *testing.T) {
	src := machine.NewArena()
	s, err := src.NewString([]byte("hello"))
	require.NoError(t, err)
	v := machine.WrapString(s)

	dest := machine.NewArena()
	cp, err := deepcopy.New(dest).Copy(v)
	require.NoError(t, err)
	assert.NotSame(t, v.Ptr(), cp.Ptr(), "copy allocates a new object in dest")
	assert.True(t, machine.Equal(v, cp), "content is preserved")
}

// scenario 6 (two globals sharing one object must still share after being
// copied together into a new actor's arena).
func TestCopyAllPreservesSharingAcrossRoots(t *testing.T) {
	src := machine.NewArena()
	obj, err := src.NewObject(1, 1)
	require.NoError(t, err)
	shared := machine.WrapObject(obj)

	dest := machine.NewArena()
	out, err := deepcopy.New(dest).CopyAll([]machine.Value{shared, shared})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Same(t, out[0].Ptr(), out[1].Ptr(), "sharing between globals survives a batch copy")
	assert.NotSame(t, shared.Ptr(), out[0].Ptr(), "but it is a genuinely new object")
}

func TestCopyArrayIsRecursivelyDeep(t *testing.T) {
	src := machine.NewArena()
	inner, err := src.NewArray([]machine.Value{machine.Int64(1), machine.Int64(2)})
	require.NoError(t, err)
	outer, err := src.NewArray([]machine.Value{machine.WrapArray(inner)})
	require.NoError(t, err)
	v := machine.WrapArray(outer)

	dest := machine.NewArena()
	cp, err := deepcopy.New(dest).Copy(v)
	require.NoError(t, err)

	cpOuter := cp.AsArray()
	require.Len(t, cpOuter.Elems, 1)
	cpInner := cpOuter.Elems[0].AsArray()
	assert.NotSame(t, inner, cpInner)
	assert.Equal(t, 2, len(cpInner.Elems))
	assert.True(t, machine.Equal(cpInner.Elems[0], machine.Int64(1)))
}

// A self-referencing array must not recurse forever and must preserve its
// own cyclic identity in the copy.
func TestCopyHandlesCycles(t *testing.T) {
	src := machine.NewArena()
	arr, err := src.NewArrayWithSize(1)
	require.NoError(t, err)
	arr.Elems[0] = machine.WrapArray(arr)
	v := machine.WrapArray(arr)

	dest := machine.NewArena()
	cp, err := deepcopy.New(dest).Copy(v)
	require.NoError(t, err)

	cpArr := cp.AsArray()
	assert.Same(t, cp.Ptr(), cpArr.Elems[0].Ptr(), "self-reference preserved in the copy")
}

func TestCopyCellRoundTrips(t *testing.T) {
	src := machine.NewArena()
	cell, err := src.NewCell(machine.Int64(7))
	require.NoError(t, err)
	v := machine.WrapCell(cell)

	dest := machine.NewArena()
	cp, err := deepcopy.New(dest).Copy(v)
	require.NoError(t, err)
	assert.NotSame(t, v.Ptr(), cp.Ptr())
	assert.True(t, machine.Equal(cp.AsCell().Value, machine.Int64(7)))
}
