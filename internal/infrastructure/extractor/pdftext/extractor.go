package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

// Extractor reads text out of PDF documents and hands everything else to the fallback extractor.
type Extractor struct {
	fallback ports.TextExtractor
}

func NewExtractor(fallback ports.TextExtractor) *Extractor {
	return &Extractor{fallback: fallback}
}

func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), pdfMagic)
}

func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if !IsPDF(data) {
		if e.fallback == nil {
			return "", fmt.Errorf("unsupported document format")
		}
		return e.fallback.ExtractText(ctx, data)
	}
	return extractPDF(data)
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
