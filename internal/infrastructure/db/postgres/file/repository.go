package file

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"file-manager-api/internal/domain/file"
	"file-manager-api/internal/infrastructure/db/postgres"
)

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) file.Repository {
	return &Repository{db: db}
}

func scanFile(row pgx.Row) (*File, error) {
	f := new(File)
	if err := row.Scan(
		&f.ID,
		&f.OwnerID,

		&f.StorageBucket,
		&f.StorageKey,
		&f.Name,
		&f.ContentType,
		&f.MimeType,
		&f.SizeBytes,
		&f.SizeMB,
		&f.ContentHash,

		&f.Status,
		&f.ErrorMessage,

		&f.UploadedAt,
	); err != nil {
		return nil, err
	}

	return f, nil
}

// fetchOne maps "no row" to (nil, nil).
func fetchOne(row pgx.Row) (*file.File, error) {
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(f), nil
}

func (r *Repository) Begin(ctx context.Context) (file.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

func (r *Repository) FetchFile(ctx context.Context, id file.ID, ownerID string) (*file.File, error) {
	return fetchOne(r.db.QueryRow(ctx, SelectFileByID, id, ownerID))
}

func (r *Repository) FetchFileByStatus(ctx context.Context, id file.ID, ownerID string, status file.Status) (*file.File, error) {
	return fetchOne(r.db.QueryRow(ctx, SelectFileByIDAndStatus, id, ownerID, string(status)))
}

func (r *Repository) FetchFileByName(ctx context.Context, ownerID, name string, status file.Status) (*file.File, error) {
	return fetchOne(r.db.QueryRow(ctx, SelectFileByName, ownerID, name, string(status)))
}

func (r *Repository) FetchFiles(ctx context.Context, ownerID string) (file.Files, error) {
	rows, err := r.db.Query(ctx, SelectFilesByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fs Files
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}

		fs = append(fs, f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fromDBModels(&fs), nil
}

func (r *Repository) SumSizeMB(ctx context.Context, ownerID string, status file.Status) (float64, error) {
	var sum float64
	if err := r.db.QueryRow(ctx, SumSizeMBByOwner, ownerID, string(status)).Scan(&sum); err != nil {
		return 0, err
	}

	return sum, nil
}

func (r *Repository) CreateFile(ctx context.Context, req *file.File) (*file.File, error) {
	return insertFile(ctx, r.db, req)
}

func (r *Repository) RestoreFile(ctx context.Context, f *file.File) error {
	_, err := r.db.Exec(ctx, UpsertCompletedFile,
		f.ID, f.OwnerID, f.StorageBucket, f.StorageKey, f.Name, string(f.ContentType), f.MimeType,
		f.SizeBytes, f.SizeMB, f.ContentHash, f.UploadedAt,
	)
	if err != nil {
		if postgres.IsPgUniqueViolation(err, LiveNameIndex) {
			return file.ErrDuplicateName
		}
		return err
	}

	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id file.ID, ownerID, message string) error {
	tag, err := r.db.Exec(ctx, MarkFileFailed, id, ownerID, message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark failed: file %s not found", id)
	}

	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertFile(ctx context.Context, q queryRower, req *file.File) (*file.File, error) {
	f, err := scanFile(q.QueryRow(ctx, InsertFile, insertArgs(req)...))
	if err != nil {
		if postgres.IsPgUniqueViolation(err, LiveNameIndex) {
			return nil, file.ErrDuplicateName
		}
		return nil, err
	}

	return fromDBModel(f), nil
}
