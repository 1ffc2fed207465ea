package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestBatchIsolatesPerFileFailures(t *testing.T) {
	result := Batch([]File{
		{Name: "notes.txt", Data: []byte("  hello world  ")},
		{Name: "broken.pdf", Data: []byte("definitely not a pdf")},
	})

	if len(result.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(result.Documents))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if result.Errors[0].Filename != "broken.pdf" {
		t.Fatalf("unexpected error filename: %s", result.Errors[0].Filename)
	}
	if !result.Success {
		t.Fatal("batch with one success should be successful")
	}
	if !strings.Contains(result.CombinedText, "=== FILE: notes.txt ===") {
		t.Fatalf("missing file marker in combined text: %q", result.CombinedText)
	}
	if strings.Contains(result.CombinedText, "broken.pdf") {
		t.Fatal("failed file must not appear in combined text")
	}
}

func TestBatchAllFailures(t *testing.T) {
	result := Batch([]File{
		{Name: "a.pdf", Data: []byte("junk")},
		{Name: "b.xyz", Data: []byte("junk")},
	})
	if result.Success {
		t.Fatal("expected success=false when every file fails")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(result.Errors))
	}
	if result.CombinedText != "" {
		t.Fatalf("expected empty combined text, got %q", result.CombinedText)
	}
}

func TestBatchUnsupportedExtension(t *testing.T) {
	result := Batch([]File{{Name: "archive.zip", Data: []byte("x")}})
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if result.Errors[0].Message != "Unsupported file type: .zip" {
		t.Fatalf("unexpected message: %q", result.Errors[0].Message)
	}
}

func TestBatchPreservesInputOrder(t *testing.T) {
	result := Batch([]File{
		{Name: "b.txt", Data: []byte("second")},
		{Name: "a.txt", Data: []byte("first")},
	})
	idxB := strings.Index(result.CombinedText, "=== FILE: b.txt ===")
	idxA := strings.Index(result.CombinedText, "=== FILE: a.txt ===")
	if idxB < 0 || idxA < 0 || idxB > idxA {
		t.Fatalf("combined text not in input order: %q", result.CombinedText)
	}
}

func TestExtractTextStats(t *testing.T) {
	result := Batch([]File{{Name: "doc.md", Data: []byte("one two three")}})
	if len(result.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(result.Documents))
	}
	stats := result.Documents[0].Stats
	if stats.Type != "text" {
		t.Fatalf("unexpected type: %s", stats.Type)
	}
	if stats.WordCount != 3 {
		t.Fatalf("unexpected word count: %d", stats.WordCount)
	}
	if stats.CharacterCount != len("one two three") {
		t.Fatalf("unexpected character count: %d", stats.CharacterCount)
	}
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body>` +
		`<w:p><w:r><w:t>Hello</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>World</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": docXML})

	text, err := extractDOCX(data)
	if err != nil {
		t.Fatalf("extractDOCX: %v", err)
	}
	if text != "Hello\nWorld" {
		t.Fatalf("unexpected docx text: %q", text)
	}
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	if _, err := extractDOCX(data); err == nil {
		t.Fatal("expected error for zip without document.xml")
	}
}

func TestExtractPPTXSlides(t *testing.T) {
	slide := `<?xml version="1.0"?><p:sld xmlns:p="ns"><p:txBody>` +
		`<a:p xmlns:a="ns2"><a:r><a:t>Slide text</a:t></a:r></a:p>` +
		`</p:txBody></p:sld>`
	data := buildZip(t, map[string]string{"ppt/slides/slide1.xml": slide})

	if got := extractPPTX(data); got != "Slide text" {
		t.Fatalf("unexpected pptx text: %q", got)
	}
}

func TestExtractPPTXDegradesToPlaceholder(t *testing.T) {
	if got := extractPPTX([]byte("not a zip at all")); got != PPTXPlaceholder {
		t.Fatalf("expected placeholder, got %q", got)
	}

	// A degraded pptx still counts as a successful extraction.
	result := Batch([]File{{Name: "deck.pptx", Data: []byte("not a zip at all")}})
	if !result.Success {
		t.Fatal("degraded pptx extraction should be a success")
	}
	if len(result.Errors) != 0 {
		t.Fatalf("degraded pptx must not produce an error entry: %+v", result.Errors)
	}
	if result.Documents[0].Text != PPTXPlaceholder {
		t.Fatalf("unexpected text: %q", result.Documents[0].Text)
	}
}

func TestExtractHTMLStripsScriptAndCollapsesWhitespace(t *testing.T) {
	page := `<html><head><title>T</title><style>body { color: red }</style></head>
<body>
  <script>var x = 1;</script>
  <h1>Heading</h1>


  <p>First    paragraph
with   a wrapped line</p>



  <p>Second paragraph</p>
</body></html>`

	text, err := extractHTML([]byte(page))
	if err != nil {
		t.Fatalf("extractHTML: %v", err)
	}
	if strings.Contains(text, "var x") || strings.Contains(text, "color: red") {
		t.Fatalf("script/style content leaked: %q", text)
	}
	if !strings.Contains(text, "Heading") || !strings.Contains(text, "Second paragraph") {
		t.Fatalf("missing body text: %q", text)
	}
	if strings.Contains(text, "  ") {
		t.Fatalf("whitespace run not collapsed: %q", text)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Fatalf("blank lines not collapsed: %q", text)
	}
}

func TestExtractPlainTextTrims(t *testing.T) {
	result := Batch([]File{{Name: "readme.txt", Data: []byte("\n\n  content  \n")}})
	if result.Documents[0].Text != "content" {
		t.Fatalf("unexpected text: %q", result.Documents[0].Text)
	}
}
