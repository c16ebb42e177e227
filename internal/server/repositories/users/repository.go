// Package users is the credential store: persistence of user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/skeleton/internal/server/models"
)

// Repository persists users. It applies no business rules; a duplicate
// email surfaces as common.ErrorConflict and a missing row as
// common.ErrorNotFound.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, user *models.NewUser) (int64, error)
	UpdateFields(ctx context.Context, id int64, fields models.UserFields) error
	// ConsumeResetToken replaces the password hash and clears the reset token
	// only while the stored reset token still equals resetToken. A token that
	// was already consumed or replaced yields common.ErrorNotFound.
	ConsumeResetToken(ctx context.Context, id int64, resetToken, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}
