package hashutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// 分块读取以限制内存占用
const chunkSize = 8 * 1024

// Hasher 负责文件内容摘要，用于去重和完整性校验
type Hasher struct {
	algorithm string
}

func NewHasher(algorithm string) (*Hasher, error) {
	algorithm = strings.ToLower(algorithm)
	switch algorithm {
	case "", "sha256":
		algorithm = "sha256"
	case "sha1", "md5":
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
	return &Hasher{algorithm: algorithm}, nil
}

func (h *Hasher) newDigest() hash.Hash {
	switch h.algorithm {
	case "sha1":
		return sha1.New()
	case "md5":
		return md5.New()
	default:
		return sha256.New()
	}
}

// Algorithm 返回当前使用的摘要算法名
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Sum 计算字节内容的十六进制摘要
func (h *Hasher) Sum(content []byte) string {
	digest := h.newDigest()
	for i := 0; i < len(content); i += chunkSize {
		end := i + chunkSize
		if end > len(content) {
			end = len(content)
		}
		digest.Write(content[i:end])
	}
	return hex.EncodeToString(digest.Sum(nil))
}

// SumReader 流式计算摘要
func (h *Hasher) SumReader(r io.Reader) (string, error) {
	digest := h.newDigest()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// Equal 比较两份内容是否一致，先比长度再比摘要
func (h *Hasher) Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return h.Sum(a) == h.Sum(b)
}

// Verify 校验内容与已存摘要是否匹配
func (h *Hasher) Verify(content []byte, expected string) bool {
	return strings.EqualFold(h.Sum(content), expected)
}
