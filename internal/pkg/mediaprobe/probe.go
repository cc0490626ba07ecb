package mediaprobe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Metadata 媒体结构信息
type Metadata struct {
	Width    int
	Height   int
	Duration float64
	Format   string
}

// Probe 媒体内容结构解析，图片走解码，视频走 ffprobe
type Probe struct {
	ffprobePath string
}

func NewProbe(ffprobePath string) *Probe {
	return &Probe{ffprobePath: ffprobePath}
}

// InspectImage 解码图片并提取尺寸，解码失败说明内容损坏或不是图片
func (p *Probe) InspectImage(content []byte) (*Metadata, error) {
	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	bounds := img.Bounds()
	return &Metadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// InspectVideo 校验视频结构。未配置 ffprobe 时退化为头部特征检查
func (p *Probe) InspectVideo(ctx context.Context, content []byte, path string) (*Metadata, error) {
	if !looksLikeVideo(content) {
		return nil, errors.New("content does not look like a known video container")
	}

	if p.ffprobePath == "" || path == "" {
		return &Metadata{}, nil
	}

	duration, err := p.probeDuration(ctx, path)
	if err != nil {
		// ffprobe 不可用不算内容损坏
		return &Metadata{}, nil
	}

	meta := &Metadata{Duration: duration}
	if w, h, err := p.probeDimensions(ctx, path); err == nil {
		meta.Width, meta.Height = w, h
	}
	return meta, nil
}

func (p *Probe) probeDuration(ctx context.Context, mediaPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-i", mediaPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

func (p *Probe) probeDimensions(ctx context.Context, mediaPath string) (int, int, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		"-i", mediaPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(out)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output: %q", out)
	}

	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// looksLikeVideo 常见容器的头部特征
func looksLikeVideo(content []byte) bool {
	if len(content) < 12 {
		return false
	}
	// MP4/MOV: 偏移 4 处的 ftyp box
	if bytes.Equal(content[4:8], []byte("ftyp")) {
		return true
	}
	// AVI: RIFF....AVI
	if bytes.HasPrefix(content, []byte("RIFF")) && bytes.Equal(content[8:12], []byte("AVI ")) {
		return true
	}
	return false
}
