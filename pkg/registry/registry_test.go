package registry

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidsha/gammarpc/pkg/protocol"
)

func constHandler(result int32) Handler {
	return func(*protocol.Data) *protocol.Data {
		return &protocol.Data{Data1: result}
	}
}

func TestRegisterAndLookup(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.Register("add2", constHandler(1)))

	h, ok := reg.Lookup("add2")
	require.True(t, ok)
	assert.EqualValues(t, 1, h(nil).Data1)

	_, ok = reg.Lookup("sub2")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Count())
}

func TestRegisterOverwrites(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.Register("op", constHandler(1)))
	require.NoError(t, reg.Register("op", constHandler(2)))

	h, ok := reg.Lookup("op")
	require.True(t, ok)
	assert.EqualValues(t, 2, h(nil).Data1)
	assert.Equal(t, 1, reg.Count())
}

func TestRegisterRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	reg := New()
	assert.ErrorIs(t, reg.Register("", constHandler(0)), protocol.ErrInvalidName)
	assert.ErrorIs(t, reg.Register(strings.Repeat("a", protocol.MaxNameLength+1), constHandler(0)), protocol.ErrInvalidName)
	assert.ErrorIs(t, reg.Register("bad\x00name", constHandler(0)), protocol.ErrInvalidName)
	assert.Error(t, reg.Register("nil", nil))

	// a name at exactly the bound is fine
	assert.NoError(t, reg.Register(strings.Repeat("a", protocol.MaxNameLength), constHandler(0)))
}

func TestUnregister(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.Register("op", constHandler(1)))
	reg.Unregister("op")

	_, ok := reg.Lookup("op")
	assert.False(t, ok)

	// removing a missing name is a no-op
	reg.Unregister("op")
}

func TestConcurrentLookups(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.Register("op", constHandler(7)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, ok := reg.Lookup("op")
				assert.True(t, ok)
				assert.EqualValues(t, 7, h(nil).Data1)
			}
		}()
	}
	wg.Wait()
}
