package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Name     string              `msgpack:"name"`
	Postings map[uint32][]uint32 `msgpack:"postings"`
}

func TestSaveLoadMsgpack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snapshot.msgpack")
	in := snapshot{Name: "places", Postings: map[uint32][]uint32{2851307216: {1, 2, 3}}}

	require.NoError(t, SaveMsgpack(path, in))

	var out snapshot
	require.NoError(t, LoadMsgpack(path, &out))
	assert.Equal(t, in, out)
}

func TestLoadMsgpack_Missing(t *testing.T) {
	var out snapshot
	err := LoadMsgpack(filepath.Join(t.TempDir(), "nope.msgpack"), &out)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMsgpack_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.msgpack")
	require.NoError(t, os.WriteFile(path, []byte{0xc1}, 0600))

	var out snapshot
	err := LoadMsgpack(path, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "failed to msgpack decode")
}

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

func TestCloseFile(t *testing.T) {
	diskFull := errors.New("disk full")

	t.Run("close failure is returned", func(t *testing.T) {
		var err error
		closeFile(failingCloser{diskFull}, "a.msgpack", &err)
		require.Error(t, err)
		assert.True(t, errors.Is(err, diskFull))
		assert.Contains(t, err.Error(), "a.msgpack")
	})

	t.Run("earlier failure wins", func(t *testing.T) {
		encodeErr := errors.New("encode failed")
		err := encodeErr
		closeFile(failingCloser{diskFull}, "a.msgpack", &err)
		assert.Equal(t, encodeErr, err)
	})

	t.Run("clean close keeps nil", func(t *testing.T) {
		var err error
		closeFile(failingCloser{}, "a.msgpack", &err)
		assert.NoError(t, err)
	})
}
