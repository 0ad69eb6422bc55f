package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_ReadsAndRemoves(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	path := s.StagePath(".png")
	require.NoError(t, os.WriteFile(path, []byte("pngdata"), 0o600))

	data, err := s.Collect(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("pngdata"), data)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "staged file must be removed after collect")
}

func TestCollect_TooLargeRemovesFile(t *testing.T) {
	s := NewStore(t.TempDir(), 4)

	path := s.StagePath(".bin")
	require.NoError(t, os.WriteFile(path, []byte("more than four bytes"), 0o600))

	_, err := s.Collect(path)

	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.EqualValues(t, 20, tooLarge.Size)
	assert.EqualValues(t, 4, tooLarge.Max)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "oversized staged file must not be left behind")
}

func TestCollect_Missing(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	_, err := s.Collect(s.StagePath(".xml"))
	require.Error(t, err)
}

func TestStagePath_Unique(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 0)

	a := s.StagePath(".png")
	b := s.StagePath(".png")
	assert.NotEqual(t, a, b)
	assert.Equal(t, dir, filepath.Dir(a))
}

func TestWrite_Cleanup(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	path, cleanup, err := s.Write([]byte("cert"), ".crt")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("cert"), data)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEncodeDecode(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	round, err := Decode(Encode(data))
	require.NoError(t, err)
	assert.Equal(t, data, round)
}
