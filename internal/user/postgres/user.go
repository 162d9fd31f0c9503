package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/hr-approval/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

type roleRow struct {
	RoleID     int64
	RoleName   string
	LocationID *int64
}

// ActiveRoles lists active assignments of active roles with the permission
// names each role grants.
func (r *Repository) ActiveRoles(ctx context.Context, userID int64) ([]*user.RoleAssignment, error) {
	db := r.db.WithContext(ctx)

	var rows []roleRow
	err := db.Table("user_roles ur").
		Select("ur.role_id AS role_id, r.name AS role_name, ur.location_id AS location_id").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("ur.user_id = ? AND ur.status = ? AND r.status = ?", userID, "active", "active").
		Order("ur.role_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	roleIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		roleIDs = append(roleIDs, row.RoleID)
	}
	var grants []struct {
		RoleID int64
		Name   string
	}
	err = db.Table("role_permissions rp").
		Select("rp.role_id AS role_id, p.name AS name").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("rp.role_id IN ?", roleIDs).
		Order("p.name ASC").
		Scan(&grants).Error
	if err != nil {
		return nil, err
	}
	byRole := make(map[int64][]string, len(rows))
	for _, g := range grants {
		byRole[g.RoleID] = append(byRole[g.RoleID], g.Name)
	}

	out := make([]*user.RoleAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, &user.RoleAssignment{
			RoleID:      row.RoleID,
			RoleName:    row.RoleName,
			LocationID:  row.LocationID,
			Permissions: byRole[row.RoleID],
		})
	}
	return out, nil
}
