// Package ingestion turns uploaded files into stored, indexed documents:
// format detection, plain-text extraction, chunking, and embedding.
package ingestion

import (
	"path/filepath"
	"strings"
)

// DocumentFormat enumerates supported upload formats.
type DocumentFormat string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown DocumentFormat = ""
	// FormatText represents plain-text documents.
	FormatText DocumentFormat = "text"
	// FormatPDF represents PDF documents.
	FormatPDF DocumentFormat = "pdf"
	// FormatDOCX represents Office Open XML word processing documents.
	FormatDOCX DocumentFormat = "docx"
)

// DetectFormat infers a document format from the provided filename's
// extension.
func DetectFormat(filename string) DocumentFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text":
		return FormatText
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnknown
	}
}
