package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db   dbx.DBTX
	slot string
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, slot: AccessTokenSlot}
}

func (r *SQLiteRepository) Get(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM session WHERE slot = ?`, r.slot).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session[%s]: %w", r.slot, err)
	}
	return token, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session (slot, token) VALUES (?, ?)
		ON CONFLICT(slot) DO UPDATE SET token = excluded.token
	`, r.slot, token)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", r.slot, err)
	}
	return nil
}

// Delete empties the slot. Deleting an empty slot is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE slot = ?`, r.slot)
	if err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", r.slot, err)
	}
	return nil
}
