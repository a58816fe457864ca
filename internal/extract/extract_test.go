package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pdfchat-backend/internal/shared/storage/object"
	"pdfchat-backend/internal/shared/storage/object/local"
)

// onePagePDF builds a minimal single-page PDF that draws text in Helvetica.
func onePagePDF(t *testing.T, text string) []byte {
	t.Helper()
	stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestFromBytesExtractsText(t *testing.T) {
	text, err := FromBytes(context.Background(), onePagePDF(t, "Hello PDF"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !strings.Contains(text, "Hello PDF") {
		t.Fatalf("expected extracted text to contain %q, got %q", "Hello PDF", text)
	}
}

func TestFromBytesRejectsNonPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "text", data: []byte("hello world")},
		{name: "zip", data: []byte("PK\x03\x04rest")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromBytes(context.Background(), tt.data); !errors.Is(err, ErrNotPDF) {
				t.Fatalf("expected ErrNotPDF, got %v", err)
			}
		})
	}
}

func TestFromBytesRejectsTruncatedPDF(t *testing.T) {
	if _, err := FromBytes(context.Background(), []byte("%PDF-1.4\n%garbage")); err == nil {
		t.Fatal("expected error for truncated pdf")
	}
}

func TestFromBytesHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FromBytes(ctx, []byte("%PDF-1.4")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoreExtractorMissingObject(t *testing.T) {
	ex := NewStoreExtractor(local.New(t.TempDir()))
	if _, err := ex.Extract(context.Background(), "missing.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreExtractorRejectsNonPDF(t *testing.T) {
	store := local.New(t.TempDir())
	if _, err := store.Save(context.Background(), "notes.pdf", "application/pdf", bytes.NewReader([]byte("plain text"))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ex := NewStoreExtractor(store)
	if _, err := ex.Extract(context.Background(), "notes.pdf"); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestStoreExtractorReadsStoredPDF(t *testing.T) {
	store := local.New(t.TempDir())
	if _, err := store.Save(context.Background(), "report.pdf", "application/pdf", bytes.NewReader(onePagePDF(t, "Quarterly numbers"))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	text, err := NewStoreExtractor(store).Extract(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "Quarterly numbers") {
		t.Fatalf("expected extracted text to contain %q, got %q", "Quarterly numbers", text)
	}
}
