package scan

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// 风险等级，只升不降
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

var riskRank = map[string]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// 模式扫描只看前缀，完整内容检查由上层针对图片/视频单独触发
const patternScanLimit = 64 * 1024

// Result 安全扫描结果
type Result struct {
	Safe      bool           `json:"safe"`
	Threats   []string       `json:"threats"`
	RiskLevel string         `json:"risk_level"`
	Details   map[string]any `json:"details,omitempty"`
}

func (r *Result) raise(level string) {
	if riskRank[level] > riskRank[r.RiskLevel] {
		r.RiskLevel = level
	}
}

func (r *Result) flag(level, threat string) {
	r.Safe = false
	r.Threats = append(r.Threats, threat)
	r.raise(level)
}

// Summary 扫描结论的单行描述
func (r *Result) Summary() string {
	if r.Safe {
		return "file passed security scan"
	}
	return fmt.Sprintf("security scan failed: %d threat(s) detected (risk: %s)", len(r.Threats), r.RiskLevel)
}

var suspiciousPatterns = [][]byte{
	// 脚本注入
	[]byte("<script"),
	[]byte("</script>"),
	[]byte("javascript:"),
	[]byte("vbscript:"),
	[]byte("onload="),
	[]byte("onerror="),
	[]byte("onclick="),
	[]byte("onmouseover="),

	// 服务端脚本
	[]byte("<?php"),
	[]byte("<%"),
	[]byte("<asp:"),
	[]byte("#!/bin/"),
	[]byte("#!/usr/bin/"),
}

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`http://[^\s]+\.exe`),
	regexp.MustCompile(`https://[^\s]+\.exe`),
	regexp.MustCompile(`ftp://[^\s]+\.exe`),
	regexp.MustCompile(`javascript:[^\s]+`),
	regexp.MustCompile(`data:[^;]+;base64,`),
}

var dangerousExtensions = map[string]struct{}{
	"exe": {}, "bat": {}, "cmd": {}, "com": {}, "pif": {}, "scr": {}, "vbs": {}, "js": {},
	"jar": {}, "app": {}, "deb": {}, "pkg": {}, "dmg": {}, "rpm": {},
	"php": {}, "asp": {}, "aspx": {}, "jsp": {}, "py": {}, "rb": {}, "pl": {},
	"sh": {}, "bash": {}, "zsh": {}, "fish": {},
}

var blockedMimeTypes = map[string]struct{}{
	"application/x-executable":    {},
	"application/x-msdownload":    {},
	"application/x-msdos-program": {},
	"application/x-dosexec":       {},
	"application/x-winexe":        {},
	"application/x-sh":            {},
	"application/x-shellscript":   {},
	"text/x-php":                  {},
	"application/x-php":           {},
	"text/x-python":               {},
	"application/x-python-code":   {},
}

// Scanner 上传内容启发式安全扫描，不是完整的杀毒引擎
type Scanner struct {
	enabled bool
}

func NewScanner(enabled bool) *Scanner {
	return &Scanner{enabled: enabled}
}

func (s *Scanner) Enabled() bool {
	return s.enabled
}

// Scan 对文件内容做多维度检查，mimeType 为空时自动嗅探
func (s *Scanner) Scan(content []byte, filename, mimeType string) *Result {
	result := &Result{
		Safe:      true,
		RiskLevel: RiskLow,
	}

	if mimeType == "" {
		mimeType = mimetype.Detect(content).String()
	}

	s.checkMimeType(result, mimeType)
	if filename != "" {
		s.checkExtension(result, filename)
	}
	s.checkHeader(result, content)
	s.checkPatterns(result, content)
	s.checkEmbedded(result, content, mimeType)

	result.Details = map[string]any{
		"mime_type": mimeType,
		"file_size": len(content),
	}

	return result
}

func (s *Scanner) checkMimeType(result *Result, mimeType string) {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	if _, blocked := blockedMimeTypes[base]; blocked {
		result.flag(RiskHigh, "blocked MIME type: "+base)
		return
	}

	if strings.HasPrefix(base, "application/x-") {
		for _, marker := range []string{"executable", "script", "shellscript"} {
			if strings.Contains(base, marker) {
				result.flag(RiskHigh, "potentially dangerous MIME type: "+base)
				return
			}
		}
	}
}

func (s *Scanner) checkExtension(result *Result, filename string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, bad := dangerousExtensions[ext]; bad {
		result.flag(RiskHigh, "dangerous file extension: ."+ext)
	}

	// 多重扩展名里藏的危险后缀，例如 x.jpg.sh
	parts := strings.Split(filename, ".")
	if len(parts) > 2 {
		for _, part := range parts[1 : len(parts)-1] {
			if _, bad := dangerousExtensions[strings.ToLower(part)]; bad {
				result.flag(RiskHigh, "hidden dangerous extension: ."+strings.ToLower(part))
			}
		}
	}
}

func (s *Scanner) checkHeader(result *Result, content []byte) {
	if len(content) < 4 {
		return
	}

	switch {
	case bytes.HasPrefix(content, []byte("MZ")):
		result.flag(RiskHigh, "Windows executable detected")
	case bytes.HasPrefix(content, []byte("\x7fELF")):
		result.flag(RiskHigh, "Linux executable detected")
	case bytes.HasPrefix(content, []byte("\xfe\xed\xfa\xce")), bytes.HasPrefix(content, []byte("\xce\xfa\xed\xfe")):
		result.flag(RiskHigh, "macOS executable detected")
	case bytes.HasPrefix(content, []byte("\xca\xfe\xba\xbe")):
		result.flag(RiskHigh, "Java class file detected")
	}
}

func (s *Scanner) checkPatterns(result *Result, content []byte) {
	prefix := content
	if len(prefix) > patternScanLimit {
		prefix = prefix[:patternScanLimit]
	}
	lower := bytes.ToLower(prefix)

	for _, pattern := range suspiciousPatterns {
		if bytes.Contains(lower, pattern) {
			result.flag(RiskMedium, "suspicious pattern found: "+string(pattern))
		}
	}

	for _, pattern := range urlPatterns {
		if pattern.Match(lower) {
			result.flag(RiskMedium, "suspicious URL pattern found")
			break
		}
	}
}

func (s *Scanner) checkEmbedded(result *Result, content []byte, mimeType string) {
	lower := bytes.ToLower(content)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		if bytes.Contains(lower, []byte("<script")) {
			result.flag(RiskMedium, "script content found in image file")
		}
		if textRatio(content) > 0.3 {
			result.flag(RiskMedium, "unusual text content ratio in image")
		}
	case strings.HasPrefix(mimeType, "video/"):
		if bytes.Contains(lower, []byte("<script")) || bytes.Contains(lower, []byte("javascript")) {
			result.flag(RiskMedium, "script content found in video file")
		}
	}
}

// textRatio 可打印 ASCII 占比，二进制图片里文本过多视为可疑
func textRatio(content []byte) float64 {
	if len(content) == 0 {
		return 0
	}
	printable := 0
	for _, b := range content {
		if b >= 32 && b <= 126 {
			printable++
		}
	}
	return float64(printable) / float64(len(content))
}
