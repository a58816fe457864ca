package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu    sync.RWMutex
	docs  map[string]Document // id -> document
	paths map[string]string   // storage path -> id
	seq   map[string]int      // id -> insertion order
	next  int
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:  make(map[string]Document),
		paths: make(map[string]string),
		seq:   make(map[string]int),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.paths[doc.StoragePath]; ok {
		return ErrConflict
	}
	if _, ok := r.docs[doc.ID]; ok {
		return ErrConflict
	}
	doc.Conversation = cloneTurns(doc.Conversation)
	r.docs[doc.ID] = doc
	r.paths[doc.StoragePath] = doc.ID
	r.next++
	r.seq[doc.ID] = r.next
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	doc.Conversation = cloneTurns(doc.Conversation)
	return doc, nil
}

// ListByUser returns documents newest first; equal timestamps fall back to
// reverse insertion order.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Document{}
	for _, doc := range r.docs {
		if doc.UserID != userID {
			continue
		}
		doc.FileText = ""
		doc.Conversation = nil
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})
	return out, nil
}

func (r *MemoryRepo) UpdateConversation(ctx context.Context, userID, documentID string, turns []Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	doc.Conversation = cloneTurns(turns)
	r.docs[documentID] = doc
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	delete(r.docs, documentID)
	delete(r.paths, doc.StoragePath)
	delete(r.seq, documentID)
	return nil
}

func (r *MemoryRepo) StoragePathExists(ctx context.Context, storagePath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.paths[storagePath]
	return ok, nil
}

func cloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
