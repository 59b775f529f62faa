package enginelog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")

	w, err := NewRotatingWriter(path, 0, 3) // 0MB -> any write exceeds the threshold
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first line\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second line\n"))
	require.NoError(t, err)

	require.FileExists(t, path)
	require.FileExists(t, path+".1")
}

func TestRotatingWriterPrunesBeyondMaxFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")

	w, err := NewRotatingWriter(path, 0, 2)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("line\n"))
		require.NoError(t, err)
	}

	require.FileExists(t, path)
	require.FileExists(t, path+".1")
	require.FileExists(t, path+".2")
	require.NoFileExists(t, path+".3")
}

func TestRotatingWriterReopensExistingFileAtCorrectOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")

	w1, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	_, err = w1.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, w1.Close())

	w2, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w2.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, info.Size(), w2.written)
}
