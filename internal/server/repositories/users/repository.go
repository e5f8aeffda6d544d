package users

import (
	"context"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

// Repository stores users keyed by a unique email.
//
// Create must enforce uniqueness atomically and report a duplicate email as
// common.ErrConflict; lookups report a missing user as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// Ensure inserts the user unless the email is taken and returns the
	// stored row either way. Existing rows are left untouched.
	Ensure(ctx context.Context, user *models.User) (*models.User, error)
}
