// Package extract converts uploaded document bytes into plain text.
// Supported formats: pdf, txt, md, docx.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Supported reports whether the given content type can be extracted.
// Types are the short form carried by the upload ("pdf", "txt", "md", "docx").
func Supported(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "pdf", "txt", "md", "docx":
		return true
	}
	return false
}

// TypeFromFilename derives the short content type from a filename extension.
// Returns "" when the extension is not a supported type.
func TypeFromFilename(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	ext := strings.ToLower(filename[idx+1:])
	if !Supported(ext) {
		return ""
	}
	return ext
}

// Text extracts plain text from data according to the content type.
// Unreadable or corrupt input returns an error; the caller decides whether
// that fails a request or a document.
func Text(contentType string, data []byte) (string, error) {
	switch strings.ToLower(contentType) {
	case "pdf":
		return pdfText(data)
	case "docx":
		return docxText(data)
	case "txt", "md":
		return plainText(data)
	default:
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
}

// plainText accepts txt/md bytes as-is, rejecting non-UTF-8 input.
func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text content is not valid UTF-8")
	}
	return string(data), nil
}
