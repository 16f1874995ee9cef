package services

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)

type TextExtractor interface {
	ExtractText(data []byte, format string) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

// FormatFromFileName maps a file extension to a supported format, or "".
func FormatFromFileName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatTXT
	}
	return ""
}

// ExtractText implements TextExtractor.
func (e *textExtractor) ExtractText(data []byte, format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatTXT:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text file is not valid UTF-8: %w", ErrCorruptFile)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read PDF: %v: %w", r, ErrCorruptFile)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %v: %w", err, ErrCorruptFile)
	}

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

var (
	reDocxParagraph = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	reDocxTab       = regexp.MustCompile(`<w:tab\s*/>`)
	reXMLTag        = regexp.MustCompile(`<[^>]*>`)
)

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %v: %w", err, ErrCorruptFile)
	}
	defer r.Close()

	return docxPlainText(r.Editable().GetContent()), nil
}

// docxPlainText turns the document XML of a docx file into plain text with a
// line per paragraph.
func docxPlainText(content string) string {
	content = reDocxParagraph.ReplaceAllString(content, "\n")
	content = reDocxTab.ReplaceAllString(content, "\t")
	content = reXMLTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}
