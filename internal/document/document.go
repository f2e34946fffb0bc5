package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// Extract returns the plain text carried by the document payload. PDF payloads
// are detected by magic bytes or a .pdf extension; anything else is treated as
// UTF-8 text.
func Extract(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("document %q is empty", name)
	}

	if isPDF(name, data) {
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("parsing pdf %q: %w", name, err)
		}
		return text, nil
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("document %q is neither a pdf nor valid utf-8 text", name)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("document %q contains no text", name)
	}

	return text, nil
}

// ExtractFile reads and extracts the document at path.
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	return Extract(filepath.Base(path), data)
}

func isPDF(name string, data []byte) bool {
	if bytes.HasPrefix(data, pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}

	text = strings.Join(strings.Fields(string(raw)), " ")
	if text == "" {
		return "", fmt.Errorf("no extractable text")
	}

	return text, nil
}
