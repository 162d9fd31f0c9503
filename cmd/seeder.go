package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
	workflowDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/workflow"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/transport/rest"
)

var (
	clearData    bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed locations, users, roles, permissions and default workflow templates for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configDir)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()
		gdb, err := openGorm(db)
		if err != nil {
			log.Fatalf("%v", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		if err := seedDatabase(context.Background(), gdb, string(hash), clearData); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seed complete; every user logs in with the seed password")
	},
}

var seedPermissions = []userDatamodel.Permission{
	{Name: "leave.approve", Module: "leave", Description: "Approve leave requests"},
	{Name: "timesheet.approve", Module: "timesheet", Description: "Approve timesheets"},
	{Name: rest.PermLocationManage, Module: "location", Description: "Create, move and deactivate locations"},
	{Name: rest.PermTemplateManage, Module: "workflow", Description: "Author workflow templates"},
}

var seedRoles = []struct {
	Role        userDatamodel.Role
	Permissions []string
}{
	{userDatamodel.Role{Name: "admin", Description: "System administrator"}, []string{rest.PermLocationManage, rest.PermTemplateManage}},
	{userDatamodel.Role{Name: "line_manager", Description: "Approves for direct reports"}, []string{"leave.approve", "timesheet.approve"}},
	{userDatamodel.Role{Name: "hr_officer", Description: "HR review"}, []string{"leave.approve", "timesheet.approve"}},
}

// seedDatabase is idempotent: rows are matched by their natural keys and
// only missing ones are inserted.
func seedDatabase(ctx context.Context, gdb *gorm.DB, passwordHash string, clear bool) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := clearSeedData(tx); err != nil {
				return err
			}
		}

		hq, err := seedLocation(tx, "Head Office", nil)
		if err != nil {
			return err
		}
		branch, err := seedLocation(tx, "Jakarta Branch", hq)
		if err != nil {
			return err
		}

		permIDs := map[string]int64{}
		for _, p := range seedPermissions {
			p := p
			if err := tx.Where(userDatamodel.Permission{Name: p.Name}).Attrs(p).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("permission %s: %w", p.Name, err)
			}
			permIDs[p.Name] = p.ID
		}

		roleIDs := map[string]int64{}
		for _, r := range seedRoles {
			role := r.Role
			role.Status = "active"
			if err := tx.Where(userDatamodel.Role{Name: role.Name}).Attrs(role).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("role %s: %w", role.Name, err)
			}
			roleIDs[role.Name] = role.ID
			for _, name := range r.Permissions {
				grant := userDatamodel.RolePermission{RoleID: role.ID, PermissionID: permIDs[name]}
				if err := tx.Where(grant).FirstOrCreate(&grant).Error; err != nil {
					return fmt.Errorf("grant %s to %s: %w", name, role.Name, err)
				}
			}
		}

		admin, err := seedUser(tx, "admin@example.com", "Admin", passwordHash, nil, hq, "permanent")
		if err != nil {
			return err
		}
		hr, err := seedUser(tx, "hr@example.com", "Hana HR", passwordHash, nil, hq, "permanent")
		if err != nil {
			return err
		}
		manager, err := seedUser(tx, "manager@example.com", "Maya Manager", passwordHash, nil, branch, "permanent")
		if err != nil {
			return err
		}
		if _, err := seedUser(tx, "employee@example.com", "Eko Employee", passwordHash, &manager.ID, branch, "permanent"); err != nil {
			return err
		}
		if _, err := seedUser(tx, "contractor@example.com", "Citra Contractor", passwordHash, &manager.ID, branch, "contract"); err != nil {
			return err
		}

		validFrom := time.Now().UTC().Truncate(24 * time.Hour)
		assignments := []struct {
			user  *userDatamodel.User
			role  string
			loc   *int64
			perms []string
		}{
			{admin, "admin", nil, []string{rest.PermLocationManage, rest.PermTemplateManage}},
			{hr, "hr_officer", &hq.ID, []string{"leave.approve", "timesheet.approve"}},
			{manager, "line_manager", &branch.ID, []string{"leave.approve", "timesheet.approve"}},
		}
		for _, a := range assignments {
			ur := userDatamodel.UserRole{UserID: a.user.ID, RoleID: roleIDs[a.role], LocationID: a.loc, Status: "active"}
			if err := tx.Where(userDatamodel.UserRole{UserID: ur.UserID, RoleID: ur.RoleID}).Attrs(ur).FirstOrCreate(&ur).Error; err != nil {
				return fmt.Errorf("assign %s: %w", a.role, err)
			}
			for _, name := range a.perms {
				scope := userDatamodel.UserPermissionScope{
					UserID:             a.user.ID,
					PermissionID:       permIDs[name],
					IsGlobal:           a.loc == nil,
					LocationID:         a.loc,
					IncludeDescendants: a.loc != nil,
					ValidFrom:          validFrom,
					Status:             "active",
				}
				key := userDatamodel.UserPermissionScope{UserID: scope.UserID, PermissionID: scope.PermissionID}
				if err := tx.Where(key).Attrs(scope).FirstOrCreate(&scope).Error; err != nil {
					return fmt.Errorf("scope %s for %s: %w", name, a.user.Email, err)
				}
			}
		}

		return seedTemplates(tx, hq.ID, admin.ID, roleIDs["hr_officer"])
	})
}

func seedLocation(tx *gorm.DB, name string, parent *locationDatamodel.Location) (*locationDatamodel.Location, error) {
	var loc locationDatamodel.Location
	err := tx.Where("name = ?", name).First(&loc).Error
	if err == nil {
		return &loc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	parentPath := ""
	if parent != nil {
		loc.ParentID = &parent.ID
		parentPath = parent.Path
	}
	loc.Name = name
	loc.Status = string(location.StatusActive)
	if err := tx.Create(&loc).Error; err != nil {
		return nil, fmt.Errorf("location %s: %w", name, err)
	}
	loc.Path = location.BuildPath(parentPath, loc.ID)
	if err := tx.Model(&loc).Update("path", loc.Path).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func seedUser(tx *gorm.DB, email, name, hash string, managerID *int64, loc *locationDatamodel.Location, staffType string) (*userDatamodel.User, error) {
	u := userDatamodel.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		ManagerID:    managerID,
		LocationID:   &loc.ID,
		StaffType:    staffType,
		Status:       "active",
	}
	if err := tx.Where(userDatamodel.User{Email: email}).Attrs(u).FirstOrCreate(&u).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return &u, nil
}

func seedTemplates(tx *gorm.DB, rootID, createdBy, hrRoleID int64) error {
	hrRoles := datatypes.JSON(fmt.Sprintf("[%d]", hrRoleID))
	longLeave := datatypes.JSON(`{"match":"and","rules":[{"field":"days","operator":"gt","value":5}]}`)

	templates := []workflowDatamodel.WorkflowTemplate{
		{
			Name:         "Leave approval",
			ResourceType: "leave",
			LocationID:   rootID,
			Version:      1,
			Status:       "active",
			CreatedBy:    createdBy,
			Steps: []workflowDatamodel.WorkflowStep{
				{StepOrder: 1, Name: "Line manager", RequiredPermission: "leave.approve", ApproverStrategy: "manager", LocationScope: string(location.ScopeSame), AllowDecline: true, AllowAdjust: true},
				{StepOrder: 2, Name: "HR review", RequiredPermission: "leave.approve", ApproverStrategy: "role", RequiredRoles: hrRoles, LocationScope: string(location.ScopeAll), AllowDecline: true, ConditionalRules: longLeave},
			},
		},
		{
			Name:         "Timesheet approval",
			ResourceType: "timesheet",
			LocationID:   rootID,
			Version:      1,
			Status:       "active",
			CreatedBy:    createdBy,
			Steps: []workflowDatamodel.WorkflowStep{
				{StepOrder: 1, Name: "Line manager", RequiredPermission: "timesheet.approve", ApproverStrategy: "manager", LocationScope: string(location.ScopeSame), AllowDecline: true, AllowAdjust: true},
			},
		},
	}

	for _, t := range templates {
		t := t
		var count int64
		if err := tx.Model(&workflowDatamodel.WorkflowTemplate{}).
			Where("resource_type = ? AND location_id = ? AND status = ?", t.ResourceType, t.LocationID, "active").
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&t).Error; err != nil {
			return fmt.Errorf("template %s: %w", t.Name, err)
		}
	}
	return nil
}

func clearSeedData(tx *gorm.DB) error {
	tables := []string{
		"notifications", "audit_logs", "workflow_step_instances", "workflow_instances",
		"workflow_steps", "workflow_templates", "leave_requests", "timesheets",
		"delegations", "user_permission_scopes", "user_roles", "role_permissions",
		"roles", "permissions", "users", "locations",
	}
	for _, table := range tables {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password for every seeded user")
}
