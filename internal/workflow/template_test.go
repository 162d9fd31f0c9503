package workflow_test

import (
	"context"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/approver"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

// fieldCode returns the code of the first field error carried by err.
func fieldCode(err error) string {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		return ""
	}
	details, ok := appErr.Details.(internal.ValidationErrors)
	if !ok || len(details.Errors) == 0 {
		return string(appErr.Code)
	}
	return details.Errors[0].Code
}

func validTemplate() workflow.CreateTemplateDTO {
	return workflow.CreateTemplateDTO{
		Name:         "Annual leave",
		ResourceType: "leave",
		LocationID:   2,
		Steps: []workflow.StepDTO{
			{StepOrder: 2, Name: "HR", RequiredPermission: "leave.approve", ApproverStrategy: "role", RequiredRoles: []int64{roleHR}, LocationScope: "same"},
			{StepOrder: 1, Name: "Manager", RequiredPermission: "leave.approve", ApproverStrategy: "manager", LocationScope: "same", AllowDecline: true},
		},
	}
}

var _ = Describe("CreateTemplateDTO", func() {
	It("accepts a well formed template and compiles it in step order", func() {
		dto := validTemplate()
		Expect(dto.Validate()).To(BeNil())

		t, err := dto.ToTemplate(9)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Steps).To(HaveLen(2))
		Expect(t.Steps[0].Order).To(Equal(1))
		Expect(t.Steps[0].Strategy).To(Equal(approver.Manager{}))
		Expect(t.Steps[1].Strategy).To(Equal(approver.Role{RoleIDs: []int64{roleHR}}))
		Expect(t.CreatedBy).To(Equal(int64(9)))
	})

	It("requires contiguous step orders", func() {
		dto := validTemplate()
		dto.Steps[0].StepOrder = 3
		Expect(fieldCode(dto.Validate())).To(Equal(string(internal.ErrCodeInvalidTemplate)))
	})

	It("rejects duplicated step orders", func() {
		dto := validTemplate()
		dto.Steps[0].StepOrder = 1
		Expect(fieldCode(dto.Validate())).To(Equal(string(internal.ErrCodeInvalidTemplate)))
	})

	It("rejects an empty template", func() {
		dto := validTemplate()
		dto.Steps = nil
		Expect(fieldCode(dto.Validate())).To(Equal(string(internal.ErrCodeInvalidTemplate)))
	})

	It("only allows a leave type filter on leave templates", func() {
		dto := validTemplate()
		dto.ResourceType = "timesheet"
		sick := "sick"
		dto.LeaveType = &sick
		Expect(fieldCode(dto.Validate())).To(Equal(string(internal.ErrCodeInvalidTemplate)))
	})

	It("rejects unknown strategies and scopes", func() {
		dto := validTemplate()
		dto.Steps[1].ApproverStrategy = "random"
		Expect(dto.Validate()).NotTo(BeNil())

		dto = validTemplate()
		dto.Steps[1].LocationScope = "planet"
		Expect(dto.Validate()).NotTo(BeNil())
	})

	It("rejects malformed conditions", func() {
		dto := validTemplate()
		dto.Steps[0].ConditionalRules = &workflow.RuleGroup{Rules: []workflow.Rule{{Field: "days", Operator: "about"}}}
		Expect(fieldCode(dto.Validate())).To(Equal(string(internal.ErrCodeInvalidTemplate)))
	})
})

var _ = Describe("ActionDTO", func() {
	It("validates the action and routing", func() {
		Expect(workflow.ActionDTO{Action: "approve"}.Validate()).To(BeNil())
		Expect(workflow.ActionDTO{Action: "decline", Routing: "back_to_step:1"}.Validate()).To(BeNil())
		Expect(workflow.ActionDTO{Action: "cancel"}.Validate()).NotTo(BeNil())
		Expect(fieldCode(workflow.ActionDTO{Action: "decline", Routing: "sideways"}.Validate())).
			To(Equal(string(internal.ErrCodeInvalidRouting)))
		zero := 0
		Expect(workflow.ActionDTO{Action: "approve", ExpectedStep: &zero}.Validate()).NotTo(BeNil())
	})
})

var _ = Describe("TemplateService", func() {
	var (
		ctx       context.Context
		templates *memoryTemplates
		service   *workflow.TemplateService
	)

	BeforeEach(func() {
		ctx = context.Background()
		store := &authStore{
			users: map[int64]*authority.User{
				employee:  {ID: employee, ManagerID: int64Ptr(manager), LocationPath: "/1/2/", Active: true},
				manager:   {ID: manager, LocationPath: "/1/2/", Active: true},
				hrOfficer: {ID: hrOfficer, LocationPath: "/1/2/", Active: true},
			},
			assignments: map[int64][]authority.RoleAssignment{
				manager:   {{UserID: manager, RoleID: roleApprover}},
				hrOfficer: {{UserID: hrOfficer, RoleID: roleHR}},
			},
			grants: map[int64][]authority.Grant{
				manager: {{UserID: manager, PermissionID: permLeaveApprove, Reach: authority.Reach{Global: true}}},
			},
			paths: map[int64]string{1: "/1/", 2: "/1/2/"},
		}
		holder := authority.StaticSnapshot(authority.NewSnapshot(
			[]authority.Role{
				{ID: roleApprover, Name: "approver", Active: true},
				{ID: roleHR, Name: "hr", Active: true},
				{ID: roleNobody, Name: "unrelated", Active: true},
			},
			[]authority.Permission{
				{ID: permLeaveApprove, Name: "leave.approve", Module: "leave"},
				{ID: 2, Name: "timesheet.approve", Module: "timesheet"},
			},
			[]authority.RolePermission{
				{RoleID: roleApprover, PermissionID: permLeaveApprove},
				{RoleID: roleHR, PermissionID: permLeaveApprove},
				{RoleID: roleNobody, PermissionID: 2},
			},
		))
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		templates = &memoryTemplates{}
		service = workflow.NewTemplateService(templates, holder, store,
			approver.NewResolver(store, holder, logger), logger)
	})

	It("creates an active template", func() {
		t, err := service.Create(ctx, 9, validTemplate())
		Expect(err).NotTo(HaveOccurred())
		Expect(t.ID).NotTo(BeZero())
		Expect(t.Status).To(Equal(workflow.TemplateActive))

		got, err := service.Get(ctx, t.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("Annual leave"))
	})

	It("checks permissions, roles and locations exist", func() {
		dto := validTemplate()
		dto.Steps[1].RequiredPermission = "leave.teleport"
		_, err := service.Create(ctx, 9, dto)
		Expect(fieldCode(err)).To(Equal(string(internal.ErrCodePermissionNotFound)))

		dto = validTemplate()
		dto.Steps[0].RequiredRoles = []int64{999}
		_, err = service.Create(ctx, 9, dto)
		Expect(fieldCode(err)).To(Equal(string(internal.ErrCodeInvalidTemplate)))

		dto = validTemplate()
		dto.Steps[0].RequiredRoles = []int64{roleNobody}
		_, err = service.Create(ctx, 9, dto)
		Expect(fieldCode(err)).To(Equal(string(internal.ErrCodeInvalidTemplate)))

		dto = validTemplate()
		dto.LocationID = 77
		_, err = service.Create(ctx, 9, dto)
		Expect(internal.HasCode(err, internal.ErrCodeLocationNotFound)).To(BeTrue())
		Expect(templates.templates).To(BeEmpty())
	})

	It("deactivates once", func() {
		t, err := service.Create(ctx, 9, validTemplate())
		Expect(err).NotTo(HaveOccurred())

		out, err := service.Deactivate(ctx, t.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(workflow.TemplateInactive))

		_, err = service.Deactivate(ctx, t.ID)
		Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())

		_, err = service.Deactivate(ctx, 404)
		Expect(internal.HasCode(err, internal.ErrCodeTemplateNotFound)).To(BeTrue())
	})

	It("previews who would approve each step", func() {
		t, err := service.Create(ctx, 9, validTemplate())
		Expect(err).NotTo(HaveOccurred())

		preview, err := service.Preview(ctx, t.ID, 2, employee)
		Expect(err).NotTo(HaveOccurred())
		Expect(preview.Steps).To(HaveLen(2))
		Expect(preview.Steps[0].Approvers).To(Equal([]int64{manager}))
		Expect(preview.Steps[0].Current).To(BeTrue())
		Expect(preview.Steps[1].Approvers).To(Equal([]int64{hrOfficer}))
		Expect(preview.Steps[1].ResolutionEmpty).To(BeFalse())
	})
})
