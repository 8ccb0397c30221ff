package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

var lineBreaks = regexp.MustCompile(`\s*\n\s*`)

// ReadDocx returns the paragraph text of a .docx file with a blank line
// between paragraphs, the shape a raw-text docx converter produces.
func ReadDocx(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	text, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	return lineBreaks.ReplaceAllString(strings.TrimSpace(text), "\n\n"), nil
}

// ReadPDF returns the plain text content of every page of a .pdf file.
func ReadPDF(_ context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
