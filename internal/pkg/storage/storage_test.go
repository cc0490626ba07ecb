package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBucketsByDate(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	res, err := store.Write([]byte("payload"), "photo.jpg", 42)
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.Size)
	assert.True(t, strings.HasPrefix(res.StoredName, "42_"))
	assert.True(t, strings.HasSuffix(res.StoredName, ".jpg"))

	// 返回的路径相对根目录，拼上根目录才是磁盘位置
	now := time.Now().UTC()
	assert.False(t, filepath.IsAbs(res.Path))
	assert.Equal(t, filepath.Join(now.Format("2006"), now.Format("01")), filepath.Dir(res.Path))

	content, err := os.ReadFile(filepath.Join(store.Root(), res.Path))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), content)

	read, err := store.Read(res.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), read)
}

func TestStoredNamesNeverCollide(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		res, err := store.Write([]byte("same"), "same.png", 1)
		require.NoError(t, err)
		_, dup := seen[res.StoredName]
		assert.False(t, dup)
		seen[res.StoredName] = struct{}{}
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	res, err := store.Write([]byte("payload"), "photo.jpg", 1)
	require.NoError(t, err)

	del, err := store.Delete(res.Path)
	require.NoError(t, err)
	assert.True(t, del.Existed)
	assert.Equal(t, int64(7), del.FreedBytes)

	// 再删一次：目标已不在，也算成功
	del, err = store.Delete(res.Path)
	require.NoError(t, err)
	assert.False(t, del.Existed)
	assert.Zero(t, del.FreedBytes)
}

func TestStat(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	res, err := store.Write([]byte("12345"), "a.gif", 1)
	require.NoError(t, err)

	info := store.Stat(res.Path)
	assert.True(t, info.Exists)
	assert.True(t, info.Readable)
	assert.Equal(t, int64(5), info.Size)

	assert.False(t, store.Stat("missing").Exists)
}

func TestStatsAndWalk(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	resA, err := store.Write([]byte("aaa"), "a.jpg", 1)
	require.NoError(t, err)
	_, err = store.Write([]byte("bbbbb"), "b.jpg", 2)
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.True(t, stats.RootExists)
	assert.Equal(t, int64(2), stats.TotalFiles)
	assert.Equal(t, int64(8), stats.TotalSize)

	// Walk 报告的路径与 Write 返回的一致，孤儿比对依赖这一点
	seen := make(map[string]struct{})
	require.NoError(t, store.Walk(func(path string, size int64) error {
		seen[path] = struct{}{}
		return nil
	}))
	_, ok := seen[resA.Path]
	assert.True(t, ok)
}

func TestCompactEmptyDirs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	empty := filepath.Join(store.Root(), "2020", "01")
	require.NoError(t, os.MkdirAll(empty, 0o755))

	res, err := store.Write([]byte("keep"), "keep.jpg", 1)
	require.NoError(t, err)

	removed, err := store.CompactEmptyDirs()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, statErr := os.Stat(empty)
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, store.Stat(res.Path).Exists)
}
