package filecheck

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// 资产类别
const (
	KindImage = "image"
	KindVideo = "video"
)

// 校验阶段，短路执行，只报告第一个失败
const (
	PhaseFilename  = "filename"
	PhaseExtension = "extension"
	PhaseSize      = "size"
	PhaseMime      = "mime"
	PhaseSecurity  = "security"
)

// Error 校验失败，携带失败阶段和原因
type Error struct {
	Phase  string
	Reason string
}

func (e *Error) Error() string {
	return e.Phase + " validation failed: " + e.Reason
}

// Info 校验通过后归一化的文件信息
type Info struct {
	FileName  string `json:"file_name"`
	Kind      string `json:"kind"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

// 扩展名到可接受 MIME 的白名单，嗅探结果必须命中，杜绝伪造扩展名
var mimeWhitelist = map[string][]string{
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"mp4":  {"video/mp4", "video/quicktime"},
	"mov":  {"video/quicktime"},
	"avi":  {"video/x-msvideo", "video/avi", "video/vnd.avi"},
}

// 基础安全特征，只查头部 1KB；完整扫描由 scan 包负责
var baselinePatterns = [][]byte{
	[]byte("<script"),
	[]byte("javascript:"),
	[]byte("vbscript:"),
	[]byte("onload="),
	[]byte("onerror="),
	[]byte("<?php"),
	[]byte("<%"),
	[]byte("#!/bin/"),
	[]byte("#!/usr/bin/"),
}

var imageScriptPatterns = [][]byte{
	[]byte("<script"),
	[]byte("javascript"),
	[]byte("eval("),
	[]byte("document."),
	[]byte("window."),
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._\-]+`)

// Validator 上传文件的格式、大小、MIME 与基础安全闸门
type Validator struct {
	imageExts    map[string]struct{}
	videoExts    map[string]struct{}
	maxImageSize int64
	maxVideoSize int64
}

func NewValidator(imageExts, videoExts []string, maxImageSize, maxVideoSize int64) *Validator {
	v := &Validator{
		imageExts:    make(map[string]struct{}, len(imageExts)),
		videoExts:    make(map[string]struct{}, len(videoExts)),
		maxImageSize: maxImageSize,
		maxVideoSize: maxVideoSize,
	}
	for _, ext := range imageExts {
		v.imageExts[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range videoExts {
		v.videoExts[strings.ToLower(ext)] = struct{}{}
	}
	return v
}

// Validate 按阶段校验文件，全部通过时返回归一化信息
func (v *Validator) Validate(filename string, content []byte) (*Info, *Error) {
	name := SanitizeFileName(filename)
	if name == "" {
		return nil, &Error{Phase: PhaseFilename, Reason: "invalid filename"}
	}

	ext := fileExtension(name)
	if ext == "" {
		return nil, &Error{Phase: PhaseExtension, Reason: "file has no extension"}
	}

	kind := v.kindOf(ext)
	if kind == "" {
		return nil, &Error{Phase: PhaseExtension, Reason: "unsupported file extension: " + ext}
	}

	if len(content) == 0 {
		return nil, &Error{Phase: PhaseSize, Reason: "file is empty"}
	}

	maxSize := v.maxImageSize
	if kind == KindVideo {
		maxSize = v.maxVideoSize
	}
	if int64(len(content)) > maxSize {
		return nil, &Error{
			Phase:  PhaseSize,
			Reason: fmt.Sprintf("file too large: %d bytes (max: %d bytes)", len(content), maxSize),
		}
	}

	// 永远不信任客户端声明的类型，从字节嗅探
	mime := mimetype.Detect(content).String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	allowed, known := mimeWhitelist[ext]
	if !known {
		return nil, &Error{Phase: PhaseMime, Reason: "unsupported extension for " + kind + ": " + ext}
	}
	if !containsString(allowed, mime) {
		return nil, &Error{
			Phase:  PhaseMime,
			Reason: fmt.Sprintf("MIME type mismatch: got %s, expected one of %v", mime, allowed),
		}
	}

	if verr := v.checkSecurity(content, mime); verr != nil {
		return nil, verr
	}

	return &Info{
		FileName:  name,
		Kind:      kind,
		Extension: ext,
		MimeType:  mime,
		Size:      int64(len(content)),
	}, nil
}

// AllowedExtensions 当前允许的扩展名，按类别返回
func (v *Validator) AllowedExtensions() map[string][]string {
	out := map[string][]string{KindImage: {}, KindVideo: {}}
	for ext := range v.imageExts {
		out[KindImage] = append(out[KindImage], ext)
	}
	for ext := range v.videoExts {
		out[KindVideo] = append(out[KindVideo], ext)
	}
	return out
}

func (v *Validator) kindOf(ext string) string {
	if _, ok := v.imageExts[ext]; ok {
		return KindImage
	}
	if _, ok := v.videoExts[ext]; ok {
		return KindVideo
	}
	return ""
}

func (v *Validator) checkSecurity(content []byte, mime string) *Error {
	header := content
	if len(header) > 1024 {
		header = header[:1024]
	}
	lowerHeader := bytes.ToLower(header)

	for _, pattern := range baselinePatterns {
		if bytes.Contains(lowerHeader, pattern) {
			return &Error{Phase: PhaseSecurity, Reason: "suspicious content detected: " + string(pattern)}
		}
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		lower := bytes.ToLower(content)
		for _, pattern := range imageScriptPatterns {
			if bytes.Contains(lower, pattern) {
				return &Error{Phase: PhaseSecurity, Reason: "potentially malicious content in image: " + string(pattern)}
			}
		}
	case strings.HasPrefix(mime, "video/"):
		if len(content) < 1000 {
			return &Error{Phase: PhaseSecurity, Reason: "video file suspiciously small"}
		}
	}

	return nil
}

// SanitizeFileName 去掉路径成分和危险字符，返回安全文件名
func SanitizeFileName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
