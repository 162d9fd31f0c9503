package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal/auth"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	return r.find(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *Repository) GetCredentialsByID(ctx context.Context, userID int64) (*auth.Credentials, error) {
	return r.find(r.db.WithContext(ctx).Where("id = ?", userID))
}

func (r *Repository) find(q *gorm.DB) (*auth.Credentials, error) {
	var u userDatamodel.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		LocationID:   u.LocationID,
		Active:       u.Status == "active",
	}, nil
}
