package scan

import (
	"bytes"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(width, height, image.Black.C)
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// 干净图片的样张用 JPEG：小尺寸 PNG 几乎只剩头部文本，可打印占比会误触文本阈值
func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func TestScanCleanImage(t *testing.T) {
	s := NewScanner(true)

	result := s.Scan(jpegBytes(t, 64, 64), "photo.jpg", "image/jpeg")

	assert.True(t, result.Safe)
	assert.Equal(t, RiskLow, result.RiskLevel)
	assert.Empty(t, result.Threats)
}

func TestScanExecutableHeader(t *testing.T) {
	s := NewScanner(true)

	content := append([]byte("MZ"), bytes.Repeat([]byte{0x00}, 64)...)
	result := s.Scan(content, "setup.jpg", "")

	assert.False(t, result.Safe)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Contains(t, result.Threats, "Windows executable detected")
}

func TestScanScriptMarkerInImage(t *testing.T) {
	s := NewScanner(true)

	content := append(pngBytes(t, 64, 64), []byte("<SCRIPT>alert(1)</SCRIPT>")...)
	result := s.Scan(content, "photo.png", "image/png")

	assert.False(t, result.Safe)
	assert.GreaterOrEqual(t, riskRank[result.RiskLevel], riskRank[RiskMedium])
}

func TestScanHiddenDangerousExtension(t *testing.T) {
	s := NewScanner(true)

	result := s.Scan(pngBytes(t, 16, 16), "vacation.sh.jpg", "image/jpeg")

	assert.False(t, result.Safe)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Contains(t, result.Threats, "hidden dangerous extension: .sh")
}

func TestScanBlockedMime(t *testing.T) {
	s := NewScanner(true)

	result := s.Scan([]byte{0x00, 0x01, 0x02, 0x03}, "tool", "application/x-dosexec")

	assert.False(t, result.Safe)
	assert.Equal(t, RiskHigh, result.RiskLevel)
}

func TestScanSuspiciousURL(t *testing.T) {
	s := NewScanner(true)

	content := append(bytes.Repeat([]byte{0x00}, 128), []byte("see https://evil.example/payload.exe now")...)
	result := s.Scan(content, "note.bin", "application/octet-stream")

	assert.False(t, result.Safe)
	assert.Contains(t, result.Threats, "suspicious URL pattern found")
}

func TestRiskNeverDowngrades(t *testing.T) {
	r := &Result{Safe: true, RiskLevel: RiskLow}
	r.flag(RiskHigh, "a")
	r.flag(RiskMedium, "b")

	assert.Equal(t, RiskHigh, r.RiskLevel)
	assert.Len(t, r.Threats, 2)
}
