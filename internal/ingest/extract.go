package ingest

import (
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor turns an uploaded file into plain text. Richer implementations
// (PDF, DOCX, OCR) can be swapped in without touching the service.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// Accepted upload extensions. Rich formats are listed separately so their
// rejection names the missing extractor rather than a bad extension.
var (
	textExts = map[string]bool{
		".txt": true, ".md": true, ".markdown": true,
		".json": true, ".xml": true, ".csv": true, ".log": true,
	}
	richExts = map[string]bool{
		".pdf": true, ".docx": true, ".doc": true,
		".png": true, ".jpg": true, ".jpeg": true,
	}
)

// PlainTextExtractor handles the plain-text formats natively. The file is
// sniffed as well as extension-checked so a binary renamed to .txt is still
// rejected.
type PlainTextExtractor struct{}

var _ Extractor = PlainTextExtractor{}

func (PlainTextExtractor) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case textExts[ext]:
	case richExts[ext]:
		return "", UnsupportedMimef("no extractor configured for %s files", ext)
	default:
		return "", UnsupportedMimef("file %s: extension %q not allowed", filename, ext)
	}
	if ct := http.DetectContentType(data); !allowedMime(ct) {
		return "", UnsupportedMimef("file %s: sniffed content type %q", filename, ct)
	}
	if !utf8.Valid(data) {
		return "", Decodef("file %s is not valid utf-8", filename)
	}
	return strings.TrimSpace(string(data)), nil
}
