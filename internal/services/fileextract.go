package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// FileExtractService turns uploaded study material into plain text for the
// study assistant.
type FileExtractService struct {
	maxBytes int64
}

func NewFileExtractService(maxUploadMB int) *FileExtractService {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &FileExtractService{maxBytes: int64(maxUploadMB) << 20}
}

// MaxBytes is the largest accepted upload.
func (s *FileExtractService) MaxBytes() int64 {
	return s.maxBytes
}

// SupportedExtension reports whether filename has a type ExtractText reads.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".pdf", ".docx":
		return true
	}
	return false
}

// ExtractText dispatches on the filename extension.
func (s *FileExtractService) ExtractText(filename string, data []byte) (string, error) {
	if int64(len(data)) > s.maxBytes {
		return "", &ValidationError{Fields: map[string]string{
			"file": fmt.Sprintf("File exceeds %d MB limit", s.maxBytes>>20),
		}}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md":
		return extractTXT(data)
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	default:
		return "", &UnsupportedMediaError{Message: fmt.Sprintf("Unsupported file type %q. Upload a PDF, DOCX or TXT file.", ext)}
	}
}

func extractTXT(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &UnsupportedMediaError{Message: "Text file is not valid UTF-8"}
	}

	text := normalizeExtractedText(string(data))
	if text == "" {
		return "", &ValidationError{Fields: map[string]string{"file": "Text file is empty"}}
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &UnsupportedMediaError{Message: "File is not a readable PDF"}
	}

	var b strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", &ValidationError{Fields: map[string]string{"file": "No extractable text found in PDF"}}
	}
	return text, nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &UnsupportedMediaError{Message: "File is not a readable DOCX document"}
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}
		break
	}

	if len(documentXML) == 0 {
		return "", &UnsupportedMediaError{Message: "DOCX document.xml not found"}
	}

	text := normalizeExtractedText(stripDOCXML(documentXML))
	if text == "" {
		return "", &ValidationError{Fields: map[string]string{"file": "No extractable text found in DOCX"}}
	}
	return text, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// Paragraphs and line breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

// normalizeExtractedText trims every line and collapses runs of blank lines.
func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var buf bytes.Buffer
	emptyCount := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
