package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/dbx"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
)

const userColumns = `id, is_admin, username, email, token_key, password_hash, reset_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.findOne(ctx, query, email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.IsAdmin, &user.Username, &user.Email, &user.TokenKey,
		&user.PasswordHash, &user.ResetToken, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStore, err)
	}

	return user, nil
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrorStore, err)
	}

	return exists, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, user *models.NewUser) (int64, error) {
	query :=
		`INSERT INTO users (is_admin, username, email, token_key, password_hash, reset_token)
		 VALUES ($1, $2, $3, $4, $5, '')
		 RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		user.IsAdmin, user.Username, user.Email, user.TokenKey, user.PasswordHash).Scan(&id)

	if err != nil {
		return 0, classify(err)
	}

	return id, nil
}

// UpdateFields writes the non-nil fields and bumps updated_at.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id int64, fields models.UserFields) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)

	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("username", fields.Username)
	add("email", fields.Email)
	add("password_hash", fields.PasswordHash)
	add("reset_token", fields.ResetToken)
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, id int64, resetToken, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, reset_token = '', updated_at = now()
		 WHERE id = $2 AND reset_token = $3 AND reset_token <> ''`,
		passwordHash, id, resetToken)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStore, err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStore, err)
	}

	return expectOneRow(res)
}

func classify(err error) error {
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", common.ErrorConflict, err)
	}
	return fmt.Errorf("%w: %w", common.ErrorStore, err)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStore, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
