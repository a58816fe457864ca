package documents

import "time"

// Document is an uploaded PDF owned by a user, together with its extracted
// text and the conversation held about it. A nil Conversation means no
// exchange has happened yet.
type Document struct {
	ID           string
	UserID       string
	FileName     string
	StoragePath  string
	SizeBytes    int64
	FileText     string
	Conversation []Turn
	CreatedAt    time.Time
}
