// Package testutil opens throwaway SQLite databases for repository tests.
package testutil

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/audit"
	delegationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/delegation"
	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
	notificationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/notification"
	resourceDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/resource"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
	workflowDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/workflow"
)

// OpenSQLite returns a migrated in-memory database private to the caller.
// The shared cache keeps every pooled connection on the same database.
func OpenSQLite() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&locationDatamodel.Location{},
		&userDatamodel.User{},
		&userDatamodel.Role{},
		&userDatamodel.Permission{},
		&userDatamodel.RolePermission{},
		&userDatamodel.UserRole{},
		&userDatamodel.UserPermissionScope{},
		&delegationDatamodel.Delegation{},
		&workflowDatamodel.WorkflowTemplate{},
		&workflowDatamodel.WorkflowStep{},
		&workflowDatamodel.WorkflowInstance{},
		&workflowDatamodel.WorkflowStepInstance{},
		&auditDatamodel.AuditLog{},
		&notificationDatamodel.Notification{},
		&resourceDatamodel.LeaveRequest{},
		&resourceDatamodel.Timesheet{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
