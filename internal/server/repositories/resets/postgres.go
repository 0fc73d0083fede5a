package resets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/dbx"
	"github.com/dmitrijs2005/credkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, userID string, token string) error {
	query := `
		INSERT INTO password_resets (user_id, reset_token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET reset_token = EXCLUDED.reset_token, created_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID string) (*models.PasswordReset, error) {
	return r.find(ctx, `
		SELECT user_id, reset_token, created_at
		FROM password_resets
		WHERE user_id = $1
	`, userID)
}

func (r *PostgresRepository) FindForUpdate(ctx context.Context, userID string) (*models.PasswordReset, error) {
	return r.find(ctx, `
		SELECT user_id, reset_token, created_at
		FROM password_resets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
}

func (r *PostgresRepository) find(ctx context.Context, query string, userID string) (*models.PasswordReset, error) {
	reset := &models.PasswordReset{}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&reset.UserID, &reset.ResetToken, &reset.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return reset, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, `
		DELETE FROM password_resets
		WHERE user_id = $1
	`, userID)
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec(ctx, `
		DELETE FROM password_resets
		WHERE created_at < $1
	`, cutoff)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, arg any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
