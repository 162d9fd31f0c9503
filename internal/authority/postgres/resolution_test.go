package postgres_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/approver"
	"github.com/frahmantamala/hr-approval/internal/authority"
	authorityPostgres "github.com/frahmantamala/hr-approval/internal/authority/postgres"
	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/delegation"
	delegationPostgres "github.com/frahmantamala/hr-approval/internal/delegation/postgres"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/testutil"
	"github.com/frahmantamala/hr-approval/pkg/keylock"
)

var _ = Describe("Location-scoped authority over the store", func() {
	const permission = "timesheet.approve"

	var (
		ctx      context.Context
		db       *gorm.DB
		store    *authorityPostgres.Store
		holder   *authority.SnapshotHolder
		resolver *authority.Resolver
		manager  *delegation.Manager
		logger   *slog.Logger
		north    int64
		south    int64
		now      time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Now()

		hq := int64(1)
		north, south = 2, 3
		Expect(db.Create(&locationDatamodel.Location{ID: hq, Name: "HQ", Path: "/1/", Status: "active"}).Error).To(Succeed())
		Expect(db.Create(&locationDatamodel.Location{ID: north, Name: "North", ParentID: &hq, Path: "/1/2/", Status: "active"}).Error).To(Succeed())
		Expect(db.Create(&locationDatamodel.Location{ID: south, Name: "South", ParentID: &hq, Path: "/1/3/", Status: "active"}).Error).To(Succeed())

		Expect(db.Create(&userDatamodel.Role{ID: 1, Name: "line_manager", Status: "active"}).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.Permission{ID: 1, Name: permission, Module: "timesheet"}).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.RolePermission{RoleID: 1, PermissionID: 1}).Error).To(Succeed())

		managerID := int64(1)
		Expect(db.Create(&userDatamodel.User{ID: 1, Email: "lead@example.com", Name: "Lead", PasswordHash: "x", LocationID: &north, Status: "active"}).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.User{ID: 2, Email: "deputy@example.com", Name: "Deputy", PasswordHash: "x", LocationID: &north, Status: "active"}).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.User{ID: 3, Email: "staff@example.com", Name: "Staff", PasswordHash: "x", ManagerID: &managerID, LocationID: &north, Status: "active"}).Error).To(Succeed())

		Expect(db.Create(&userDatamodel.UserRole{UserID: 1, RoleID: 1, LocationID: &north, Status: "active"}).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.UserPermissionScope{
			UserID: 1, PermissionID: 1, LocationID: &north,
			ValidFrom: now.Add(-2 * time.Hour), Status: "active",
		}).Error).To(Succeed())

		store = authorityPostgres.NewStore(db)
		holder = authority.NewSnapshotHolder(store)
		Expect(holder.Reload(ctx)).To(Succeed())
		resolver = authority.NewResolver(store, holder, authority.WithLogger(logger))
		manager = delegation.NewManager(delegationPostgres.NewDelegationRepository(db), store, holder,
			keylock.New(), events.NewEventBus(logger), 0, logger)
	})

	It("authorizes a grant held only at the requested location", func() {
		d, err := resolver.CheckAuthority(ctx, 1, permission, &north, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Authorized).To(BeTrue())
		Expect(d.Reason).To(Equal(authority.ReasonRoleScope))

		d, err = resolver.CheckAuthority(ctx, 1, permission, &south, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Reason).To(Equal(authority.ReasonNoMatchingGrant))

		d, err = resolver.CheckAuthority(ctx, 1, permission, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Authorized).To(BeFalse())
	})

	It("lends a location-bound permission until the delegation is revoked", func() {
		until := now.Add(24 * time.Hour)
		created, err := manager.Create(ctx, 1, delegation.CreateDelegationDTO{
			DelegateID: 2,
			Permission: permission,
			LocationID: &north,
			ValidFrom:  now.Add(-time.Minute),
			ValidUntil: &until,
			Reason:     "annual leave",
		})
		Expect(err).NotTo(HaveOccurred())

		ds, err := store.ActiveDelegations(ctx, 2, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ds).To(HaveLen(1))
		Expect(ds[0].Reach.LocationPath).To(Equal("/1/2/"))

		d, err := resolver.CheckAuthority(ctx, 2, permission, &north, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Authorized).To(BeTrue())
		Expect(d.Reason).To(Equal(authority.ReasonDelegation))
		Expect(*d.DelegatorID).To(Equal(int64(1)))
		Expect(*d.DelegationID).To(Equal(created.ID))

		d, err = resolver.CheckAuthority(ctx, 2, permission, &south, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Authorized).To(BeFalse())

		_, err = manager.Revoke(ctx, 1, created.ID)
		Expect(err).NotTo(HaveOccurred())
		d, err = resolver.CheckAuthority(ctx, 2, permission, &north, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Reason).To(Equal(authority.ReasonNoMatchingGrant))
	})

	It("refuses to delegate a permission the delegator does not hold there", func() {
		until := now.Add(24 * time.Hour)
		_, err := manager.Create(ctx, 1, delegation.CreateDelegationDTO{
			DelegateID: 2,
			Permission: permission,
			LocationID: &south,
			ValidFrom:  now,
			ValidUntil: &until,
		})
		Expect(internal.HasCode(err, internal.ErrCodeAuthorizationDenied)).To(BeTrue())
	})

	It("resolves a manager whose grant is scoped to the resource location", func() {
		approvers := approver.NewResolver(store, holder, logger)
		cfg := approver.StepConfig{RequiredPermission: permission, Strategy: approver.Manager{}, Scope: location.ScopeSame}

		ids, err := approvers.Resolve(ctx, approver.Subject{InstanceID: 1, StepOrder: 1, CreatorID: 3, LocationID: &north}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]int64{1}))

		ids, err = approvers.Resolve(ctx, approver.Subject{InstanceID: 1, StepOrder: 1, CreatorID: 3, LocationID: &south}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(BeEmpty())
	})
})
