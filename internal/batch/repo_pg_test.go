package batch

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	job := newTestJob("5a0f8e9c-0000-0000-0000-000000000001", "tenant-1", 2)

	mock.ExpectExec("INSERT INTO batch_jobs").
		WithArgs(
			job.ID,
			job.TenantID,
			job.UserID,
			job.DocumentType,
			job.Priority,
			job.Status,
			job.TotalFiles,
			0,
			0,
			0,
			0,
			sqlmock.AnyArg(), // files jsonb
			sqlmock.AnyArg(), // errors jsonb
			false,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkJobStarted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE batch_jobs").
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkJobStarted(context.Background(), "job-1"); err != nil {
		t.Fatalf("MarkJobStarted: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkJobStartedAlreadyTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE batch_jobs").
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").
		WithArgs("job-1").
		WillReturnRows(jobRows("job-1", StatusFailed))

	if err := repo.MarkJobStarted(context.Background(), "job-1"); err != ErrJobTerminal {
		t.Fatalf("err = %v, want ErrJobTerminal", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteTerminalOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("DELETE FROM batch_jobs").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteTerminalOlderThan(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteTerminalOlderThan: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(jobColumnNames()))

	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT").
		WithArgs("job-1").
		WillReturnRows(jobRows("job-1", StatusProcessing))

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.ID != "job-1" || job.Status != StatusProcessing {
		t.Fatalf("job = %+v", job)
	}
	if len(job.Files) != 1 || job.Files[0].Name != "doc.pdf" {
		t.Fatalf("files = %+v, want one pending doc.pdf", job.Files)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func jobColumnNames() []string {
	return []string{
		"id", "tenant_id", "user_id", "document_type", "priority", "status",
		"total_files", "processed_files", "successful_files", "failed_files", "progress",
		"files", "errors", "cancel_requested", "created_at", "updated_at", "started_at", "completed_at",
	}
}

func jobRows(id, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(jobColumnNames()).AddRow(
		id, "tenant-1", "user-1", "portfolio", "normal", status,
		1, 0, 0, 0, 0,
		[]byte(`[{"name":"doc.pdf","status":"pending"}]`), []byte(`[]`), false, now, now, nil, nil,
	)
}
