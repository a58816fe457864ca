package documents

import "context"

// DocumentsRepo defines persistence operations for documents. Every
// operation that takes a userID matches only documents owned by that user;
// a document owned by someone else is reported as ErrNotFound.
type DocumentsRepo interface {
	// Create inserts doc. A taken storage path yields ErrConflict.
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	// ListByUser returns the user's documents newest first without their
	// text or conversation.
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	// UpdateConversation replaces the stored log wholesale.
	UpdateConversation(ctx context.Context, userID, documentID string, turns []Turn) error
	Delete(ctx context.Context, userID, documentID string) error
	StoragePathExists(ctx context.Context, storagePath string) (bool, error)
}
