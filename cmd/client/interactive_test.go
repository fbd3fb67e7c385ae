package client

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/qKV/lib/quorum"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCoordinator is an in-memory coordinator that versions every put
type mapCoordinator struct {
	mu       sync.Mutex
	values   map[string]quorum.Result
	locked   map[string]bool
	registry gometrics.Registry
}

func newMapCoordinator() *mapCoordinator {
	return &mapCoordinator{
		values:   map[string]quorum.Result{},
		locked:   map[string]bool{},
		registry: gometrics.NewRegistry(),
	}
}

func (m *mapCoordinator) Put(key, value string) (quorum.PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[key] {
		return quorum.PutResult{}, quorum.ErrLockNotAcquired
	}
	version := m.values[key].Version + 1
	m.values[key] = quorum.Result{Value: value, Version: version, Replica: "a:1"}
	gometrics.GetOrRegisterCounter("put", m.registry).Inc(1)
	return quorum.PutResult{Version: version, Written: []string{"a:1", "b:1"}}, nil
}

func (m *mapCoordinator) Get(key string) (quorum.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.values[key]
	if !ok {
		return quorum.Result{}, quorum.ErrKeyNotFound
	}
	return res, nil
}

func (m *mapCoordinator) View() quorum.View {
	return quorum.View{Read: []string{"a:1"}, Write: []string{"a:1", "b:1"}}
}

func (m *mapCoordinator) Metrics() gometrics.Registry {
	return m.registry
}

func runSession(t *testing.T, c quorum.ICoordinator, input string) string {
	t.Helper()
	return runSessionWith(t, c, input, false)
}

func runSessionWith(t *testing.T, c quorum.ICoordinator, input string, spaced bool) string {
	t.Helper()
	coordinator = c
	t.Cleanup(func() { coordinator = nil })

	out := &bytes.Buffer{}
	require.NoError(t, interact(strings.NewReader(input), out, spaced))
	return out.String()
}

func TestInteractivePutGet(t *testing.T) {
	out := runSession(t, newMapCoordinator(), "put x 5\nget x\nput x 6\nget x\nexit\n")

	assert.Contains(t, out, "put successfully: key=x, version=1, replicas=a:1,b:1")
	assert.Contains(t, out, "key=x, found=true, value=5, version=1")
	assert.Contains(t, out, "key=x, found=true, value=6, version=2")
}

func TestInteractiveMissingKey(t *testing.T) {
	out := runSession(t, newMapCoordinator(), "get nope\n")

	assert.Contains(t, out, "key=nope, found=false")
	assert.NotContains(t, out, "error")
}

func TestInteractiveLockDenied(t *testing.T) {
	c := newMapCoordinator()
	c.locked["x"] = true

	out := runSession(t, c, "put x 1\n")
	assert.Contains(t, out, "error: put failed, key \"x\" is locked by another writer")
}

func TestInteractiveUsageErrors(t *testing.T) {
	out := runSession(t, newMapCoordinator(), "put x\nget\nfrobnicate\n\nexit\nget x\n")

	assert.Contains(t, out, "error: usage: put <key> <value>")
	assert.Contains(t, out, "error: usage: get <key>")
	assert.Contains(t, out, "error: unknown command \"frobnicate\"")
	// nothing after exit is executed
	assert.NotContains(t, out, "found=")
}

func TestInteractiveViewAndStats(t *testing.T) {
	out := runSession(t, newMapCoordinator(), "put k v\nview\nstats\n")

	assert.Contains(t, out, "read quorum:  a:1")
	assert.Contains(t, out, "write quorum: a:1,b:1")
	assert.Contains(t, out, "counter put")
	assert.Regexp(t, `count:\s+1\n`, out)
}

func TestInteractiveValueWithSpaces(t *testing.T) {
	c := newMapCoordinator()
	out := runSessionWith(t, c, "put greeting  hello big\tworld \nget greeting\n", true)

	assert.Contains(t, out, "put successfully: key=greeting, version=1")
	assert.Contains(t, out, "value=hello big\tworld, version=1")

	// without spaced values the extra words are a usage error
	out = runSession(t, newMapCoordinator(), "put greeting hello world\n")
	assert.Contains(t, out, "error: usage: put <key> <value>")
}

func TestSplitPut(t *testing.T) {
	key, value, ok := splitPut("put k a b  c", true)
	require.True(t, ok)
	assert.Equal(t, "k", key)
	assert.Equal(t, "a b  c", value)

	_, _, ok = splitPut("put k", true)
	assert.False(t, ok)
	_, _, ok = splitPut("put k   ", true)
	assert.False(t, ok)

	key, value, ok = splitPut("PUT k v", false)
	require.True(t, ok)
	assert.Equal(t, []string{"k", "v"}, []string{key, value})
}
