package documents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfchat-backend/internal/extract"
	"pdfchat-backend/internal/shared/lock"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/storage/object"
	"pdfchat-backend/internal/shared/telemetry"
)

const (
	// NamingLockKey serializes storage name selection across uploads.
	NamingLockKey = "documents:naming"

	DefaultMaxUploadBytes = 20 << 20
	namingLockTTL         = 2 * time.Minute
	contentTypePDF        = "application/pdf"
)

// Service contains business logic for documents.
type Service struct {
	Store          object.ObjectStore
	Repo           DocumentsRepo
	Extractor      extract.Extractor
	Namer          *Namer
	Locker         lock.Locker
	MaxUploadBytes int64
	now            func() time.Time
}

// NewService wires a Service. A non-positive maxUploadBytes uses
// DefaultMaxUploadBytes.
func NewService(store object.ObjectStore, repo DocumentsRepo, extractor extract.Extractor, locker lock.Locker, maxUploadBytes int64) *Service {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{
		Store:          store,
		Repo:           repo,
		Extractor:      extractor,
		Namer:          NewNamer(repo),
		Locker:         locker,
		MaxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Ingest stores an uploaded PDF under a fresh unique name, extracts its text
// and records it. Either all three succeed or nothing is left behind.
func (s *Service) Ingest(ctx context.Context, userID, displayName string, r io.Reader) (Document, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Document{}, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	body := bufio.NewReader(r)
	if _, err := body.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
		}
		return Document{}, fmt.Errorf("%w: read upload: %w", ErrStorage, err)
	}

	release, err := s.Locker.Lock(ctx, NamingLockKey, namingLockTTL)
	if err != nil {
		return Document{}, fmt.Errorf("%w: acquire naming lock: %w", ErrStorage, err)
	}
	defer release()

	storagePath, err := s.Namer.UniqueName(ctx, displayName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	size, err := s.Store.Save(ctx, storagePath, contentTypePDF, &capReader{r: body, remaining: s.maxUpload()})
	if err != nil {
		switch {
		case errors.Is(err, errUploadTooLarge):
			return Document{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxUpload())
		case errors.Is(err, object.ErrExists):
			return Document{}, fmt.Errorf("%w: %s", ErrConflict, storagePath)
		default:
			return Document{}, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}

	text, err := s.Extractor.Extract(ctx, storagePath)
	if err != nil {
		metrics.IncExtractionFailed()
		s.discard(storagePath, "extraction_failed")
		return Document{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	doc := Document{
		ID:          uuid.NewString(),
		UserID:      userID,
		FileName:    displayName,
		StoragePath: storagePath,
		SizeBytes:   size,
		FileText:    text,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discard(storagePath, "create_failed")
		if errors.Is(err, ErrConflict) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("create document: %w", err)
	}

	metrics.IncDocumentsUploaded()
	telemetry.Info("document.ingested", map[string]any{
		"document_id":  doc.ID,
		"user_id":      userID,
		"storage_path": storagePath,
		"size_bytes":   size,
	})
	return doc, nil
}

// List returns the user's documents newest first. A user without documents
// gets an empty slice.
func (s *Service) List(ctx context.Context, userID string) ([]Document, error) {
	docs, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// Get returns one owned document.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Remove deletes the stored file and then the record. A file that is already
// gone counts as deleted; any other storage failure keeps the record.
func (s *Service) Remove(ctx context.Context, userID, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.StoragePath); err != nil {
		if !errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		telemetry.Warn("document.file_missing", map[string]any{
			"document_id":  doc.ID,
			"storage_path": doc.StoragePath,
		})
	}
	if err := s.Repo.Delete(ctx, userID, documentID); err != nil {
		return err
	}
	metrics.IncDocumentsDeleted()
	return nil
}

// OpenFile returns an owned document together with a reader over its bytes.
// The caller closes the reader.
func (s *Service) OpenFile(ctx context.Context, userID, documentID string) (Document, io.ReadCloser, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return doc, rc, nil
}

// discard removes a stored file after a failed ingest. It runs on a fresh
// context so a cancelled request still cleans up.
func (s *Service) discard(storagePath, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, storagePath); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Error("document.cleanup_failed", map[string]any{
			"storage_path": storagePath,
			"reason":       reason,
			"error":        err,
		})
	}
}

func (s *Service) maxUpload() int64 {
	if s.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return s.MaxUploadBytes
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

var errUploadTooLarge = errors.New("upload exceeds size limit")

// capReader fails once more than remaining bytes have been read.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errUploadTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errUploadTooLarge
	}
	return n, err
}
