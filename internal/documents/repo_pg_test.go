package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateStoresNullConversation(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc := Document{
		ID:          "doc-1",
		UserID:      "user-1",
		FileName:    "Report.pdf",
		StoragePath: "report.pdf",
		SizeBytes:   42,
		FileText:    "hello",
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.UserID, doc.FileName, doc.StoragePath, doc.SizeBytes, doc.FileText, nil, doc.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_storage_path_key"})

	err := repo.Create(context.Background(), Document{ID: "doc-1", StoragePath: "report.pdf"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPGRepoGetByIDScopesByOwner(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "storage_path", "size_bytes", "file_text", "conversation", "created_at"}).
		AddRow("doc-1", "user-1", "Report.pdf", "report.pdf", int64(42), "text",
			[]byte(`[{"role":"user","content":"q","timestamp":"10:00:00 01.05.2024"},{"role":"assistant","content":"a","timestamp":"10:00:01 01.05.2024"}]`),
			created)
	mock.ExpectQuery("FROM documents\\s+WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("doc-1", "user-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(doc.Conversation) != 2 || doc.Conversation[1].Role != RoleAssistant {
		t.Fatalf("unexpected conversation: %+v", doc.Conversation)
	}

	mock.ExpectQuery("FROM documents").
		WithArgs("doc-1", "intruder").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "intruder", "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestPGRepoGetByIDNullConversation(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "storage_path", "size_bytes", "file_text", "conversation", "created_at"}).
		AddRow("doc-1", "user-1", "Report.pdf", "report.pdf", int64(42), "text", nil, time.Now())
	mock.ExpectQuery("FROM documents").WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Conversation != nil {
		t.Fatalf("expected nil conversation, got %+v", doc.Conversation)
	}
}

func TestPGRepoUpdateConversationNotOwned(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE documents").
		WithArgs(sqlmock.AnyArg(), "doc-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateConversation(context.Background(), "intruder", "doc-1", []Turn{{Role: RoleUser, Content: "q"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteScopesByOwner(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM documents WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("doc-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUserEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, seq DESC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "file_name", "storage_path", "size_bytes", "created_at"}))

	docs, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", docs)
	}
}

func TestPGRepoListByUserBreaksTiesByInsertionOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	// Random ids sort arbitrarily; the rows come back in seq order.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, seq DESC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "file_name", "storage_path", "size_bytes", "created_at"}).
			AddRow("0f-second", "user-1", "b.pdf", "b.pdf", int64(2), at).
			AddRow("ff-first", "user-1", "a.pdf", "a.pdf", int64(1), at))

	docs, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "0f-second" || docs[1].ID != "ff-first" {
		t.Fatalf("unexpected order %#v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoStoragePathExists(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("report.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.StoragePathExists(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("StoragePathExists: %v", err)
	}
	if !exists {
		t.Fatal("expected path to exist")
	}
}
