package service

import (
	"context"

	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/repository"
)

// UserService implements the self-service profile operations.
type UserService struct {
	users repository.UserRepository
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// UpdateMe applies a profile update for the logged-in user. The request
// type only carries name, email and photo, so passwords and roles cannot
// travel this route.
func (s *UserService) UpdateMe(ctx context.Context, userID int64, req *models.UpdateMeRequest) (*models.User, error) {
	if req.Email != nil {
		normalized := models.NormalizeEmail(*req.Email)
		req.Email = &normalized
	}
	return s.users.UpdateProfile(ctx, userID, req)
}

// DeleteMe deactivates the logged-in user's account. The data stays but
// the account vanishes from every read path.
func (s *UserService) DeleteMe(ctx context.Context, userID int64) error {
	return s.users.Deactivate(ctx, userID)
}
