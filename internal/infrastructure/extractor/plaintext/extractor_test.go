package plaintext

import (
	"context"
	"testing"
)

func TestExtractTextTrimsAndStripsBOM(t *testing.T) {
	got, err := NewExtractor().ExtractText(context.Background(), append([]byte{0xEF, 0xBB, 0xBF}, []byte("  NDA between A and B \n")...))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "NDA between A and B" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractTextRejectsBinary(t *testing.T) {
	for _, data := range [][]byte{{0xff, 0xfe, 0x00}, []byte("abc\x00def")} {
		if _, err := NewExtractor().ExtractText(context.Background(), data); err == nil {
			t.Fatalf("expected error for %v", data)
		}
	}
}
