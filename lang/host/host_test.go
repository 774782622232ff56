package host_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/host"
	"github.com/mna/glade/lang/machine"
)

type fakeRuntime struct {
	arena   *machine.Arena
	stdout  io.Writer
	spawned uint32
	sent    []machine.Value
	recvVal machine.Value
	joinVal machine.Value
	sendOK  bool
	pollVal machine.Value
	pollOK  bool
}

func (f *fakeRuntime) ActorID() uint32                    { return 0 }
func (f *fakeRuntime) Arena() *machine.Arena              { return f.arena }
func (f *fakeRuntime) Stdout() io.Writer                  { return f.stdout }
func (f *fakeRuntime) Spawn(uint32) (uint32, error)       { return f.spawned, nil }
func (f *fakeRuntime) Recv() (machine.Value, error)       { return f.recvVal, nil }
func (f *fakeRuntime) Poll() (machine.Value, bool)        { return f.pollVal, f.pollOK }
func (f *fakeRuntime) Join(uint32) (machine.Value, error) { return f.joinVal, nil }

func (f *fakeRuntime) Send(dest uint32, v machine.Value) bool {
	f.sent = append(f.sent, v)
	return f.sendOK
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{arena: machine.NewArena(), stdout: &bytes.Buffer{}}
}

func TestPrintWritesToStdout(t *testing.T) {
	var buf bytes.Buffer
	rt := newFakeRuntime()
	rt.stdout = &buf

	fns := host.Builtins(host.Config{Stdout: &buf})
	s, err := rt.Arena().NewString([]byte("hello"))
	require.NoError(t, err)
	_, err = fns["print"].Fn(rt, []machine.Value{machine.WrapString(s)})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", buf.String())
}

func TestFileWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	fns := host.Builtins(host.Config{FileRoot: dir})
	rt := newFakeRuntime()

	path, err := rt.Arena().NewString([]byte("data.txt"))
	require.NoError(t, err)
	content, err := rt.Arena().NewString([]byte("payload"))
	require.NoError(t, err)

	_, err = fns["file_write"].Fn(rt, []machine.Value{machine.WrapString(path), machine.WrapString(content)})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	v, err := fns["file_read"].Fn(rt, []machine.Value{machine.WrapString(path)})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(v.AsByteArray().Bytes))
}

func TestFileReadRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	fns := host.Builtins(host.Config{FileRoot: dir})
	rt := newFakeRuntime()

	path, err := rt.Arena().NewString([]byte("../../etc/passwd"))
	require.NoError(t, err)
	_, err = fns["file_read"].Fn(rt, []machine.Value{machine.WrapString(path)})
	require.Error(t, err)
}

func TestActorSpawnSendRecvJoinDelegateToRuntime(t *testing.T) {
	fns := host.Builtins(host.Config{})
	rt := newFakeRuntime()
	rt.spawned = 3
	rt.sendOK = true
	rt.recvVal = machine.Int64(9)
	rt.joinVal = machine.Int64(99)

	v, err := fns["$actor_spawn"].Fn(rt, []machine.Value{machine.FunID(1)})
	require.NoError(t, err)
	assert.EqualValues(t, 3, v.AsInt64())

	v, err = fns["$actor_send"].Fn(rt, []machine.Value{machine.Int64(3), machine.Int64(5)})
	require.NoError(t, err)
	assert.True(t, v.AsBool())
	require.Len(t, rt.sent, 1)

	v, err = fns["$actor_recv"].Fn(rt, nil)
	require.NoError(t, err)
	assert.True(t, machine.Equal(v, machine.Int64(9)))

	v, err = fns["$actor_join"].Fn(rt, []machine.Value{machine.Int64(3)})
	require.NoError(t, err)
	assert.True(t, machine.Equal(v, machine.Int64(99)))
}

func TestActorPollReturnsUndefWhenMailboxEmpty(t *testing.T) {
	fns := host.Builtins(host.Config{})
	rt := newFakeRuntime()
	rt.pollOK = false

	v, err := fns["$actor_poll"].Fn(rt, nil)
	require.NoError(t, err)
	assert.True(t, machine.Equal(v, machine.Undef))
}

func TestActorPollReturnsValueWhenMailboxHasMessage(t *testing.T) {
	fns := host.Builtins(host.Config{})
	rt := newFakeRuntime()
	rt.pollOK = true
	rt.pollVal = machine.Int64(7)

	v, err := fns["$actor_poll"].Fn(rt, nil)
	require.NoError(t, err)
	assert.True(t, machine.Equal(v, machine.Int64(7)))
}

func TestActorSleepBlocksForDuration(t *testing.T) {
	fns := host.Builtins(host.Config{})
	rt := newFakeRuntime()

	start := time.Now()
	v, err := fns["$actor_sleep"].Fn(rt, []machine.Value{machine.Int64(10)})
	require.NoError(t, err)
	assert.True(t, machine.Equal(v, machine.Nil))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
