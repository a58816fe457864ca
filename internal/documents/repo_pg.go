package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pdfchat-backend/internal/shared/storage/db"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    storage_path,
    size_bytes,
    file_text,
    conversation,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`

	conversation, err := conversationParam(doc.Conversation)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.StoragePath,
		doc.SizeBytes,
		doc.FileText,
		conversation,
		doc.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	const query = `
SELECT id, user_id, file_name, storage_path, size_bytes, file_text, conversation, created_at
FROM documents
WHERE id = $1 AND user_id = $2
LIMIT 1`
	var doc Document
	var fileText sql.NullString
	var conversation []byte
	err := r.DB.QueryRowContext(ctx, query, documentID, userID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.StoragePath,
		&doc.SizeBytes,
		&fileText,
		&conversation,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.FileText = fileText.String
	doc.Conversation, err = DecodeConversation(conversation)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListByUser returns documents for a user, newest first. Equal timestamps
// fall back to reverse insertion order via the seq column.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	const query = `
SELECT id, user_id, file_name, storage_path, size_bytes, created_at
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC, seq DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.FileName,
			&doc.StoragePath,
			&doc.SizeBytes,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateConversation replaces the conversation log of an owned document.
func (r *PGRepo) UpdateConversation(ctx context.Context, userID, documentID string, turns []Turn) error {
	const query = `
UPDATE documents
SET conversation = $1::jsonb
WHERE id = $2 AND user_id = $3`
	conversation, err := conversationParam(turns)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, conversation, documentID, userID)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return requireRow(res)
}

// Delete removes an owned document row.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, documentID, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res)
}

// StoragePathExists reports whether any document uses storagePath.
func (r *PGRepo) StoragePathExists(ctx context.Context, storagePath string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE storage_path = $1)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, storagePath).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func conversationParam(turns []Turn) (sql.NullString, error) {
	raw, err := EncodeConversation(turns)
	if err != nil {
		return sql.NullString{}, err
	}
	if raw == nil {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
