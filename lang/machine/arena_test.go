package machine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/machine"
)

func TestArenaChargesBudget(t *testing.T) {
	a := machine.NewArenaSize(1024)
	assert.EqualValues(t, 0, a.Used())

	_, err := a.NewString([]byte("hello"))
	require.NoError(t, err)
	assert.Greater(t, a.Used(), int64(0))
}

func TestArenaOOM(t *testing.T) {
	a := machine.NewArenaSize(32)
	_, err := a.NewByteArrayWithSize(1024)
	require.Error(t, err)
	var oom *machine.OOMError
	require.ErrorAs(t, err, &oom)
	assert.EqualValues(t, 32, oom.Capacity)
}

func TestArenaNeverReclaimsBetweenAllocations(t *testing.T) {
	a := machine.NewArenaSize(256)
	_, err := a.NewString([]byte("a"))
	require.NoError(t, err)
	used1 := a.Used()

	_, err = a.NewString([]byte("b"))
	require.NoError(t, err)
	used2 := a.Used()

	assert.Greater(t, used2, used1, "budget accumulates, never shrinks")
}

func TestArenaGrowArrayChargesPerElement(t *testing.T) {
	a := machine.NewArenaSize(1024)
	arr, err := a.NewArrayWithSize(0)
	require.NoError(t, err)
	before := a.Used()
	require.NoError(t, a.GrowArray(arr, machine.Int64(1)))
	assert.Len(t, arr.Elems, 1)
	assert.Greater(t, a.Used(), before)
}
