package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for uploads whose extension maps to no
// known extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// TextExtractor produces a single plain-text string from raw file bytes.
// One implementation exists per supported format.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// ExtractorFor selects the extractor for a filename. Selection is a pure
// function of the extension.
func ExtractorFor(filename string) (TextExtractor, error) {
	switch DetectFormat(filename) {
	case FormatText:
		return plainTextExtractor{}, nil
	case FormatPDF:
		return pdfExtractor{}, nil
	case FormatDOCX:
		return docxExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ExtractText converts file bytes into normalized plain text using the
// extractor matching the filename.
func ExtractText(data []byte, filename string) (string, error) {
	extractor, err := ExtractorFor(filename)
	if err != nil {
		return "", err
	}

	text, err := extractor.Extract(data)
	if err != nil {
		return "", err
	}

	return normalizeText(text), nil
}

type plainTextExtractor struct{}

func (plainTextExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return string(data), nil
}

type pdfExtractor struct{}

func (pdfExtractor) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return buf.String(), nil
}

type docxExtractor struct{}

// docx files are zip archives; the body text lives in word/document.xml as
// <w:p> paragraphs of <w:r> runs.
func (docxExtractor) Extract(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body: %w", err)
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}

		return parseDocxXML(content)
	}

	return "", fmt.Errorf("docx archive has no word/document.xml")
}

type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

func parseDocxXML(content []byte) (string, error) {
	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse docx xml: %w", err)
	}

	var builder strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			builder.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				builder.WriteString(text.Content)
			}
		}
	}

	return builder.String(), nil
}

func normalizeText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
