package hashutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumMatchesStdlib(t *testing.T) {
	h, err := NewHasher("sha256")
	require.NoError(t, err)

	content := bytes.Repeat([]byte("capstone"), 4096)
	want := sha256.Sum256(content)

	assert.Equal(t, hex.EncodeToString(want[:]), h.Sum(content))
	assert.Len(t, h.Sum(content), 64)
}

func TestSumReader(t *testing.T) {
	h, err := NewHasher("sha256")
	require.NoError(t, err)

	content := bytes.Repeat([]byte{0xAB}, 100_000)
	got, err := h.SumReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, h.Sum(content), got)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewHasher("crc32")
	assert.Error(t, err)
}

func TestEqualShortCircuitsOnSize(t *testing.T) {
	h, _ := NewHasher("")

	assert.False(t, h.Equal([]byte("abc"), []byte("abcd")))
	assert.True(t, h.Equal([]byte("abc"), []byte("abc")))
}

func TestVerifyCaseInsensitive(t *testing.T) {
	h, _ := NewHasher("sha256")
	content := []byte("hello")

	assert.True(t, h.Verify(content, strings.ToUpper(h.Sum(content))))
	assert.False(t, h.Verify(content, h.Sum([]byte("other"))))
}
