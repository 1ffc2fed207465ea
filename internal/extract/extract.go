// Package extract converts uploaded binary documents into plain text.
// Each file is handled independently; a malformed file yields an error
// entry for that file and never aborts the batch.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"audit-backend/internal/shared/util"
)

// File is one in-memory upload handed to the extractor.
type File struct {
	Name string
	Data []byte
}

// Stats describes one successfully extracted document.
type Stats struct {
	Type           string `json:"type"`
	CharacterCount int    `json:"characterCount"`
	WordCount      int    `json:"wordCount"`
}

// Document is the extracted text for one file.
type Document struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	Stats    Stats  `json:"stats"`
}

// FileError records a single file that could not be extracted.
type FileError struct {
	Filename string `json:"filename"`
	Message  string `json:"error"`
}

// BatchResult aggregates a whole extraction batch. Success is true as long
// as at least one file yielded text.
type BatchResult struct {
	Documents    []Document
	Errors       []FileError
	CombinedText string
	Success      bool
}

// PPTXPlaceholder is emitted when presentation decoding fails structurally;
// presentation extraction is inherently lossy and treated as degraded
// success rather than failure.
const PPTXPlaceholder = "[PPTX content - text extraction limited]"

// Batch extracts every file independently and aggregates the results.
// Successful texts are concatenated in input order, each prefixed with a
// "=== FILE: <name> ===" marker.
func Batch(files []File) BatchResult {
	var result BatchResult
	var sections []string

	for _, f := range files {
		text, kind, err := extractOne(f.Name, f.Data)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Filename: f.Name, Message: err.Error()})
			continue
		}
		doc := Document{
			Filename: f.Name,
			Text:     text,
			Stats: Stats{
				Type:           kind,
				CharacterCount: len([]rune(text)),
				WordCount:      len(strings.Fields(text)),
			},
		}
		result.Documents = append(result.Documents, doc)
		sections = append(sections, fmt.Sprintf("=== FILE: %s ===\n%s", f.Name, text))
	}

	result.CombinedText = strings.Join(sections, "\n\n")
	result.Success = len(result.Documents) > 0
	return result
}

func extractOne(name string, data []byte) (text string, kind string, err error) {
	switch ext := util.FileExt(name); ext {
	case ".pdf":
		text, err = extractPDF(data)
		return text, "pdf", err
	case ".docx":
		text, err = extractDOCX(data)
		return text, "docx", err
	case ".pptx":
		return extractPPTX(data), "pptx", nil
	case ".html", ".htm":
		text, err = extractHTML(data)
		return text, "html", err
	case ".txt", ".md":
		return strings.TrimSpace(string(data)), "text", nil
	default:
		return "", "", fmt.Errorf("Unsupported file type: %s", ext)
	}
}

// extractPDF parses PDF bytes into plain text. The parser can panic on
// malformed input; that becomes a per-file error, not a crash.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf parse: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
