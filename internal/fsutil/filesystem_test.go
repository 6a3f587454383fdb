package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}

	if !fsys.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fsys.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_ListByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.avi", "a.AVI", "notes.txt", "c.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.avi"), 0755))

	got, err := ListByExtension(OSFileSystem{}, dir, "avi")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.AVI"), filepath.Join(dir, "b.avi")}, got)
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	require.NoError(t, mfs.WriteFile("/test.txt", testData, 0644))

	data, err := mfs.ReadFile("/test.txt")
	require.NoError(t, err)
	assert.Equal(t, testData, data)

	// Returned slices are copies.
	data[0] = 'j'
	again, _ := mfs.ReadFile("/test.txt")
	assert.Equal(t, "hello, world", string(again))
}

func TestMemoryFileSystem_CreateAndWrite(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/created.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("frame,x,y\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := mfs.ReadFile("/out/created.csv")
	require.NoError(t, err)
	assert.Equal(t, "frame,x,y\n", string(data))
	assert.True(t, mfs.Exists("/out"))
}

func TestMemoryFileSystem_StatAndMkdir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/a/b/c", 0755))

	info, err := mfs.Stat("/a/b")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = mfs.Stat("/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/videos/day2.avi", []byte("2"), 0644))
	require.NoError(t, mfs.WriteFile("/videos/day1.avi", []byte("1"), 0644))
	require.NoError(t, mfs.WriteFile("/videos/readme.md", nil, 0644))
	require.NoError(t, mfs.WriteFile("/videos/old/day0.avi", nil, 0644))

	entries, err := mfs.ReadDir("/videos")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"day1.avi", "day2.avi", "old", "readme.md"}, names)

	got, err := ListByExtension(mfs, "/videos", ".avi")
	require.NoError(t, err)
	assert.Equal(t, []string{"/videos/day1.avi", "/videos/day2.avi"}, got)

	_, err = mfs.ReadDir("/nowhere")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
