package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// extractDOCX pulls raw text out of word/document.xml, ignoring formatting.
func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx open: %w", err)
	}

	docFile := findZipEntry(zr, "word/document.xml")
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	raw, err := readZipEntry(docFile)
	if err != nil {
		return "", fmt.Errorf("docx read: %w", err)
	}

	return stripOOXML(string(raw)), nil
}

// extractPPTX walks the slide XML files in order. Presentation decoding is
// best-effort: on any structural failure it returns the fixed placeholder
// instead of an error.
func extractPPTX(data []byte) string {
	if len(data) == 0 {
		return PPTXPlaceholder
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PPTXPlaceholder
	}

	var slideNames []string
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			slideNames = append(slideNames, f.Name)
		}
	}
	if len(slideNames) == 0 {
		return PPTXPlaceholder
	}
	sort.Strings(slideNames)

	var parts []string
	for _, name := range slideNames {
		entry := findZipEntry(zr, name)
		if entry == nil {
			continue
		}
		raw, err := readZipEntry(entry)
		if err != nil {
			continue
		}
		if text := stripOOXML(string(raw)); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return PPTXPlaceholder
	}
	return strings.Join(parts, "\n\n")
}

// stripOOXML discards markup from an OOXML part, keeping character data and
// inserting line breaks at paragraph boundaries.
func stripOOXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(raw)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func findZipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
