package file

import (
	"context"

	"github.com/jackc/pgx/v5"

	"file-manager-api/internal/domain/file"
)

type Tx struct {
	tx pgx.Tx
}

func (t *Tx) CreateFile(ctx context.Context, req *file.File) (*file.File, error) {
	return insertFile(ctx, t.tx, req)
}

// UpdateStatus only moves rows along an allowed transition; (nil, nil)
// means the row is gone or in a state that cannot move to status.
func (t *Tx) UpdateStatus(ctx context.Context, id file.ID, ownerID string, status file.Status) (*file.File, error) {
	return fetchOne(t.tx.QueryRow(ctx, UpdateFileStatus,
		id, ownerID, string(status), statusStrings(file.SourcesOf(status)),
	))
}

func (t *Tx) RemoveFile(ctx context.Context, id file.ID, ownerID string) error {
	_, err := t.tx.Exec(ctx, DeleteFileByID, id, ownerID)
	return err
}

func (t *Tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
