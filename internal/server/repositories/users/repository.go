// Package users persists user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
)

// Repository is the user store. Lookups of unknown users return
// common.ErrorNotFound; a duplicate email on Create returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
