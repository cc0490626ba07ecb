package mediaprobe

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const thumbnailEdge = 320

// MakeThumbnail 生成等比缩略图，输出 JPEG
func MakeThumbnail(content []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	thumb := imaging.Fit(img, thumbnailEdge, thumbnailEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, errors.Wrap(err, "failed to encode thumbnail")
	}
	return buf.Bytes(), nil
}
