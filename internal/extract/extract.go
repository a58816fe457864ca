package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfchat-backend/internal/shared/storage/object"
)

// ErrNotPDF is returned when the payload does not start with a PDF header.
var ErrNotPDF = errors.New("not a pdf document")

var pdfMagic = []byte("%PDF-")

// Extractor reads the plain text of a stored PDF.
type Extractor interface {
	Extract(ctx context.Context, storageKey string) (string, error)
}

// StoreExtractor extracts text from PDFs held in an object store.
type StoreExtractor struct {
	Store object.ObjectStore
}

// NewStoreExtractor builds an Extractor reading from store.
func NewStoreExtractor(store object.ObjectStore) *StoreExtractor {
	return &StoreExtractor{Store: store}
}

// Extract opens the object under storageKey and returns the text of every
// page in order.
func (e *StoreExtractor) Extract(ctx context.Context, storageKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := e.Store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", storageKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: read: %w", storageKey, err)
	}

	text, err := FromBytes(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", storageKey, err)
	}
	return text, nil
}

// FromBytes extracts text from an in-memory PDF.
func FromBytes(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return "", ErrNotPDF
	}
	return extractPDF(data)
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		buf.WriteString(content)
	}
	return buf.String(), nil
}
