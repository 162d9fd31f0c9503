package cmd

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal/authority"
	authorityPostgres "github.com/frahmantamala/hr-approval/internal/authority/postgres"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/testutil"
	"github.com/frahmantamala/hr-approval/internal/transport/rest"
	workflowPostgres "github.com/frahmantamala/hr-approval/internal/workflow/postgres"
)

func TestCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cmd Suite")
}

var _ = Describe("seedDatabase", func() {
	var (
		ctx context.Context
		gdb *gorm.DB
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		gdb, err = testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		Expect(seedDatabase(ctx, gdb, "hash", false)).To(Succeed())
	})

	count := func(model interface{}) int64 {
		var n int64
		Expect(gdb.Model(model).Count(&n).Error).To(Succeed())
		return n
	}

	It("is idempotent", func() {
		users, roles := count(&userDatamodel.User{}), count(&userDatamodel.Role{})
		Expect(seedDatabase(ctx, gdb, "hash", false)).To(Succeed())
		Expect(count(&userDatamodel.User{})).To(Equal(users))
		Expect(count(&userDatamodel.Role{})).To(Equal(roles))
	})

	It("loads as consistent reference data", func() {
		holder := authority.NewSnapshotHolder(authorityPostgres.NewStore(gdb))
		Expect(holder.Reload(ctx)).To(Succeed())

		snap := holder.Current()
		for _, name := range []string{"leave.approve", "timesheet.approve", rest.PermLocationManage, rest.PermTemplateManage} {
			_, ok := snap.Permission(name)
			Expect(ok).To(BeTrue(), name)
		}
		leave, _ := snap.Permission("leave.approve")
		Expect(snap.RolesGranting(leave.ID)).To(HaveLen(2))
	})

	It("installs compilable default templates at the root location", func() {
		var hqID int64
		Expect(gdb.Raw("SELECT id FROM locations WHERE parent_id IS NULL").Scan(&hqID).Error).To(Succeed())

		templates, err := workflowPostgres.NewTemplateRepository(gdb).ActiveFor(ctx, resource.TypeLeave, []int64{hqID})
		Expect(err).NotTo(HaveOccurred())
		Expect(templates).To(HaveLen(1))
		Expect(templates[0].Steps).To(HaveLen(2))
		Expect(templates[0].Steps[1].Conditions).NotTo(BeNil())
	})

	It("grants the admin global administrative permissions", func() {
		var admin userDatamodel.User
		Expect(gdb.Where("email = ?", "admin@example.com").First(&admin).Error).To(Succeed())

		store := authorityPostgres.NewStore(gdb)
		holder := authority.NewSnapshotHolder(store)
		Expect(holder.Reload(ctx)).To(Succeed())
		decision, err := authority.NewResolver(store, holder).CheckAuthority(ctx, admin.ID, rest.PermTemplateManage, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(decision.Authorized).To(BeTrue())
	})

	It("clears previous data when asked", func() {
		Expect(seedDatabase(ctx, gdb, "hash", true)).To(Succeed())
		Expect(count(&userDatamodel.User{})).To(Equal(int64(5)))
	})
})
