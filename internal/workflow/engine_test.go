package workflow_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/approver"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/notification"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

const (
	permLeaveApprove int64 = 1

	roleApprover int64 = 10
	roleHR       int64 = 11
	roleNobody   int64 = 12

	employee  int64 = 1
	manager   int64 = 2
	hrOfficer int64 = 3
	deputy    int64 = 4
	outsider  int64 = 5

	leaveID int64 = 100
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func compiledStep(order int, strategy string, roles []int64, scope location.Scope) *workflow.Step {
	s := &workflow.Step{
		Order:              order,
		Name:               fmt.Sprintf("step %d", order),
		RequiredPermission: "leave.approve",
		StrategyName:       strategy,
		RequiredRoles:      roles,
		Scope:              scope,
	}
	Expect(s.Compile()).To(Succeed())
	return s
}

func leaveTemplate(id, locationID int64, steps ...*workflow.Step) *workflow.Template {
	return &workflow.Template{
		ID:           id,
		Name:         fmt.Sprintf("leave template %d", id),
		ResourceType: resource.TypeLeave,
		LocationID:   locationID,
		Version:      1,
		Status:       workflow.TemplateActive,
		Steps:        steps,
	}
}

var _ = Describe("Engine", func() {
	var (
		ctx       context.Context
		now       time.Time
		store     *authStore
		mem       *memory
		templates *memoryTemplates
		publisher *recordingPublisher
		engine    *workflow.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }

		at2 := authority.Reach{LocationID: int64Ptr(2), LocationPath: "/1/2/", IncludeDescendants: true}
		store = &authStore{
			users: map[int64]*authority.User{
				employee:  {ID: employee, ManagerID: int64Ptr(manager), LocationPath: "/1/2/", Active: true},
				manager:   {ID: manager, LocationPath: "/1/2/", Active: true},
				hrOfficer: {ID: hrOfficer, LocationPath: "/1/2/", Active: true},
				deputy:    {ID: deputy, LocationPath: "/1/2/", Active: true},
				outsider:  {ID: outsider, LocationPath: "/1/4/", Active: true},
			},
			assignments: map[int64][]authority.RoleAssignment{
				manager:   {{UserID: manager, RoleID: roleApprover}},
				hrOfficer: {{UserID: hrOfficer, RoleID: roleHR}},
				outsider:  {{UserID: outsider, RoleID: roleHR}},
			},
			grants: map[int64][]authority.Grant{
				manager:   {{UserID: manager, PermissionID: permLeaveApprove, Reach: at2, Window: authority.Window{From: now.Add(-24 * time.Hour)}}},
				hrOfficer: {{UserID: hrOfficer, PermissionID: permLeaveApprove, Reach: at2, Window: authority.Window{From: now.Add(-24 * time.Hour)}}},
				outsider:  {{UserID: outsider, PermissionID: permLeaveApprove, Reach: authority.Reach{Global: true}, Window: authority.Window{From: now.Add(-24 * time.Hour)}}},
			},
			delegations: map[int64][]authority.Delegation{},
			paths:       map[int64]string{1: "/1/", 2: "/1/2/", 3: "/1/2/3/", 4: "/1/4/"},
		}

		holder := authority.StaticSnapshot(authority.NewSnapshot(
			[]authority.Role{
				{ID: roleApprover, Name: "approver", Active: true},
				{ID: roleHR, Name: "hr", Active: true},
				{ID: roleNobody, Name: "vacant", Active: true},
			},
			[]authority.Permission{{ID: permLeaveApprove, Name: "leave.approve", Module: "leave"}},
			[]authority.RolePermission{
				{RoleID: roleApprover, PermissionID: permLeaveApprove},
				{RoleID: roleHR, PermissionID: permLeaveApprove},
				{RoleID: roleNobody, PermissionID: permLeaveApprove},
			},
		))
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		approvers := approver.NewResolver(store, holder, logger).WithClock(clock)
		authz := authority.NewResolver(store, holder, authority.WithClock(clock), authority.WithLogger(logger))
		mem = newMemory()
		authz.SetStepGate(workflow.NewStepGate(mem, approvers))

		templates = &memoryTemplates{}
		publisher = &recordingPublisher{}
		engine = workflow.NewEngine(workflow.Dependencies{
			Templates: templates,
			Instances: mem,
			Resources: mem,
			Locations: store,
			Authority: authz,
			Approvers: approvers,
			History:   mem,
			Publisher: publisher,
		}, logger).WithClock(clock)

		mem.addResource(&resource.Resource{
			Type:       resource.TypeLeave,
			ID:         leaveID,
			OwnerID:    employee,
			LocationID: 2,
			Status:     resource.StatusDraft,
			Attributes: map[string]interface{}{"leave_type": "annual", "days": float64(2), "staff_type": "permanent"},
		})
	})

	submit := func() *workflow.Outcome {
		out, err := engine.Submit(ctx, workflow.SubmitRequest{ResourceType: resource.TypeLeave, ResourceID: leaveID, ActorID: employee})
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	act := func(instanceID, actorID int64, action workflow.Action, routing *workflow.DeclineRouting) (*workflow.Outcome, error) {
		return engine.Act(ctx, workflow.ActionRequest{
			InstanceID: instanceID,
			ActorID:    actorID,
			Action:     action,
			Routing:    routing,
			SourceIP:   "10.0.0.7",
		})
	}

	attempt := func(inst *workflow.Instance, order, n int) *workflow.StepInstance {
		for _, s := range inst.Steps {
			if s.StepOrder == order && s.Attempt == n {
				return s
			}
		}
		return nil
	}

	Describe("a single manager step", func() {
		BeforeEach(func() {
			templates.templates = append(templates.templates,
				leaveTemplate(1, 2, compiledStep(1, "manager", nil, location.ScopeSame)))
		})

		It("is approved end to end by the creator's manager", func() {
			out := submit()
			Expect(out.Instance.Status).To(Equal(workflow.StatusUnderReview))
			Expect(out.Instance.CurrentStepOrder).To(Equal(1))
			Expect(out.NextApprovers).To(Equal([]int64{manager}))
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusUnderReview))

			done, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Instance.Status).To(Equal(workflow.StatusApproved))
			Expect(done.Instance.CompletedAt).NotTo(BeNil())
			Expect(done.Instance.PendingSteps()).To(BeEmpty())
			Expect(done.NextApprovers).To(BeEmpty())
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusApproved))

			step := done.Instance.Step(1)
			Expect(step.Status).To(Equal(workflow.StepApproved))
			Expect(*step.ActorID).To(Equal(manager))
			Expect(step.OnBehalfOf).To(BeNil())

			Expect(mem.notesFor(manager)).To(HaveLen(1))
			Expect(mem.notesFor(manager)[0].Kind).To(Equal(notification.KindApprovalRequested))
			Expect(mem.notesFor(employee)).To(HaveLen(1))
			Expect(mem.notesFor(employee)[0].Kind).To(Equal(notification.KindApproved))
			Expect(mem.audits).To(HaveLen(2))
			Expect(mem.audits[1].SourceIP).To(Equal("10.0.0.7"))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeWorkflowSubmitted, events.EventTypeWorkflowApproved}))
		})

		It("rejects a replayed approval without new side effects", func() {
			out := submit()
			_, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			audits, notes := len(mem.audits), len(mem.notes)

			_, err = act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())
			Expect(mem.audits).To(HaveLen(audits))
			Expect(mem.notes).To(HaveLen(notes))
		})

		It("reports a conflict before checking authority", func() {
			out := submit()
			_, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = act(out.Instance.ID, outsider, workflow.ActionApprove, nil)
			Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())
		})

		It("denies users who are not approvers of the step with the reason", func() {
			out := submit()

			_, err := act(out.Instance.ID, hrOfficer, workflow.ActionApprove, nil)
			Expect(internal.HasCode(err, internal.ErrCodeAuthorizationDenied)).To(BeTrue())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Details).To(Equal(internal.DenialDetails{Reason: string(authority.ReasonNotEligible), Permission: "leave.approve"}))
			Expect(mem.audits).To(HaveLen(1))
		})

		It("records a delegated approval with the delegator", func() {
			store.delegations[deputy] = []authority.Delegation{{
				ID:           50,
				DelegatorID:  manager,
				DelegateID:   deputy,
				PermissionID: permLeaveApprove,
				Reach:        authority.Reach{LocationID: int64Ptr(2), LocationPath: "/1/2/"},
				Window:       window(now.Add(-time.Hour), 7*24*time.Hour),
				Status:       authority.DelegationActive,
			}}
			out := submit()

			done, err := act(out.Instance.ID, deputy, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			step := done.Instance.Step(1)
			Expect(*step.ActorID).To(Equal(deputy))
			Expect(*step.OnBehalfOf).To(Equal(manager))
			Expect(*step.DelegationID).To(Equal(int64(50)))
			Expect(mem.audits[1].Context).To(HaveKeyWithValue("on_behalf_of", manager))
		})

		It("refuses to submit twice or for someone else", func() {
			_, err := engine.Submit(ctx, workflow.SubmitRequest{ResourceType: resource.TypeLeave, ResourceID: leaveID, ActorID: manager})
			Expect(internal.HasCode(err, internal.ErrCodeAuthorizationDenied)).To(BeTrue())

			submit()
			_, err = engine.Submit(ctx, workflow.SubmitRequest{ResourceType: resource.TypeLeave, ResourceID: leaveID, ActorID: employee})
			Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())
		})

		It("rolls the transition back when a side effect fails", func() {
			out := submit()
			mem.failNotify = true

			_, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).To(HaveOccurred())

			inst, err := engine.Get(ctx, out.Instance.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Status).To(Equal(workflow.StatusUnderReview))
			Expect(inst.Step(1).Status).To(Equal(workflow.StepPending))
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusUnderReview))
			Expect(mem.audits).To(HaveLen(1))
		})

		It("lets exactly one of several racing approvals through", func() {
			out := submit()

			var wg sync.WaitGroup
			results := make([]error, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, results[i] = act(out.Instance.ID, manager, workflow.ActionApprove, nil)
				}(i)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range results {
				if err == nil {
					succeeded++
				} else {
					Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())
				}
			}
			Expect(succeeded).To(Equal(1))
			Expect(mem.audits).To(HaveLen(2))
		})

		It("lists the audit trail of an instance", func() {
			out := submit()
			_, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())

			logs, err := engine.History(ctx, out.Instance.ID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(2))
			Expect(logs[0].Action).To(Equal(events.EventTypeWorkflowApproved))
		})
	})

	Describe("a three step chain", func() {
		BeforeEach(func() {
			second := compiledStep(2, "role", []int64{roleHR}, location.ScopeSame)
			second.AllowDecline = true
			templates.templates = append(templates.templates, leaveTemplate(1, 2,
				compiledStep(1, "manager", nil, location.ScopeSame),
				second,
				compiledStep(3, "permission", nil, location.ScopeSame),
			))
		})

		It("routes a decline back to an earlier step", func() {
			out := submit()
			next, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Instance.CurrentStepOrder).To(Equal(2))
			Expect(next.NextApprovers).To(Equal([]int64{hrOfficer}))

			back, err := act(out.Instance.ID, hrOfficer, workflow.ActionDecline,
				&workflow.DeclineRouting{Kind: workflow.RouteBackToStep, Step: 1})
			Expect(err).NotTo(HaveOccurred())

			inst := back.Instance
			Expect(inst.Status).To(Equal(workflow.StatusUnderReview))
			Expect(inst.CurrentStepOrder).To(Equal(1))
			Expect(attempt(inst, 2, 1).Status).To(Equal(workflow.StepDeclined))
			Expect(attempt(inst, 1, 1).Status).To(Equal(workflow.StepApproved))
			Expect(inst.Step(1).Attempt).To(Equal(2))
			Expect(inst.Step(1).Status).To(Equal(workflow.StepPending))
			Expect(inst.Step(2).Status).To(Equal(workflow.StepPending))
			Expect(inst.Step(3).Attempt).To(Equal(1))
			Expect(back.NextApprovers).To(Equal([]int64{manager}))
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusUnderReview))
			Expect(mem.notesFor(manager)[len(mem.notesFor(manager))-1].Kind).To(Equal(notification.KindRoutedBack))
			ownerNotes := mem.notesFor(employee)
			Expect(ownerNotes).NotTo(BeEmpty())
			Expect(ownerNotes[len(ownerNotes)-1].Kind).To(Equal(notification.KindDeclined))
			Expect(ownerNotes[len(ownerNotes)-1].Body).To(ContainSubstring("sent back to step 1"))
			Expect(publisher.last().Recipients).To(ConsistOf(manager, employee))

			again, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Instance.CurrentStepOrder).To(Equal(2))
		})

		It("runs through every step to approval", func() {
			out := submit()
			for _, actor := range []int64{manager, hrOfficer, hrOfficer} {
				var err error
				out, err = act(out.Instance.ID, actor, workflow.ActionApprove, nil)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(out.Instance.Status).To(Equal(workflow.StatusApproved))
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusApproved))
		})

		It("rejects a stale expected step", func() {
			out := submit()
			_, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Act(ctx, workflow.ActionRequest{
				InstanceID: out.Instance.ID, ActorID: manager, Action: workflow.ActionApprove, ExpectedStep: intPtr(1),
			})
			Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())
		})

		It("validates decline routing", func() {
			out := submit()
			_, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = act(out.Instance.ID, hrOfficer, workflow.ActionDecline, nil)
			Expect(internal.HasCode(err, internal.ErrCodeInvalidRouting)).To(BeTrue())

			_, err = act(out.Instance.ID, hrOfficer, workflow.ActionDecline,
				&workflow.DeclineRouting{Kind: workflow.RouteBackToStep, Step: 2})
			Expect(internal.HasCode(err, internal.ErrCodeInvalidRouting)).To(BeTrue())
		})

		It("does not allow declining a step without allow_decline", func() {
			out := submit()
			_, err := act(out.Instance.ID, manager, workflow.ActionDecline, &workflow.DeclineRouting{Kind: workflow.RouteTerminate})
			Expect(internal.HasCode(err, internal.ErrCodeActionNotAllowed)).To(BeTrue())

			_, err = act(out.Instance.ID, manager, workflow.ActionAdjust, nil)
			Expect(internal.HasCode(err, internal.ErrCodeActionNotAllowed)).To(BeTrue())
		})
	})

	Describe("owner and terminal routing", func() {
		BeforeEach(func() {
			first := compiledStep(1, "manager", nil, location.ScopeSame)
			first.AllowDecline = true
			first.AllowAdjust = true
			templates.templates = append(templates.templates, leaveTemplate(1, 2, first))
		})

		It("terminates on decline", func() {
			out := submit()
			done, err := act(out.Instance.ID, manager, workflow.ActionDecline, &workflow.DeclineRouting{Kind: workflow.RouteTerminate})
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Instance.Status).To(Equal(workflow.StatusDeclined))
			Expect(done.Instance.Step(1).Status).To(Equal(workflow.StepDeclined))
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusDeclined))
			Expect(mem.notesFor(employee)[0].Kind).To(Equal(notification.KindDeclined))
		})

		It("returns the resource to its owner on decline back to owner", func() {
			out := submit()
			done, err := act(out.Instance.ID, manager, workflow.ActionDecline, &workflow.DeclineRouting{Kind: workflow.RouteBackToOwner})
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Instance.Status).To(Equal(workflow.StatusDraft))
			Expect(done.Instance.IsOpen()).To(BeFalse())
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusDraft))
		})

		It("abandons the instance on adjust and accepts a fresh submission", func() {
			out := submit()
			done, err := act(out.Instance.ID, manager, workflow.ActionAdjust, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Instance.Status).To(Equal(workflow.StatusDraft))
			Expect(done.Instance.Step(1).Status).To(Equal(workflow.StepReturned))
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusDraft))
			Expect(mem.notesFor(employee)[0].Kind).To(Equal(notification.KindReturned))

			_, err = act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(internal.HasCode(err, internal.ErrCodeStateConflict)).To(BeTrue())

			fresh := submit()
			Expect(fresh.Instance.ID).NotTo(Equal(out.Instance.ID))
		})
	})

	Describe("template selection and conditions", func() {
		It("uses the nearest ancestor's template", func() {
			templates.templates = append(templates.templates,
				leaveTemplate(1, 1, compiledStep(1, "manager", nil, location.ScopeSame)),
				leaveTemplate(2, 2, compiledStep(1, "manager", nil, location.ScopeSame)),
			)
			mem.resources[resKey(resource.TypeLeave, leaveID)].LocationID = 3

			out := submit()
			Expect(out.Instance.TemplateID).To(Equal(int64(2)))
		})

		It("skips templates whose filters do not match and prefers narrower ones", func() {
			sick := "sick"
			annual := "annual"
			narrowMiss := leaveTemplate(1, 2, compiledStep(1, "manager", nil, location.ScopeSame))
			narrowMiss.LeaveType = &sick
			broad := leaveTemplate(2, 2, compiledStep(1, "manager", nil, location.ScopeSame))
			narrowHit := leaveTemplate(3, 2, compiledStep(1, "manager", nil, location.ScopeSame))
			narrowHit.LeaveType = &annual
			templates.templates = append(templates.templates, narrowMiss, broad, narrowHit)

			out := submit()
			Expect(out.Instance.TemplateID).To(Equal(int64(3)))
		})

		It("fails when no template applies", func() {
			_, err := engine.Submit(ctx, workflow.SubmitRequest{ResourceType: resource.TypeLeave, ResourceID: leaveID, ActorID: employee})
			Expect(internal.HasCode(err, internal.ErrCodeTemplateNotFound)).To(BeTrue())
		})

		It("skips steps whose conditions do not match", func() {
			long := compiledStep(1, "role", []int64{roleHR}, location.ScopeSame)
			long.Conditions = &workflow.RuleGroup{Rules: []workflow.Rule{{Field: "days", Operator: workflow.OpGt, Value: float64(5)}}}
			templates.templates = append(templates.templates,
				leaveTemplate(1, 2, long, compiledStep(2, "manager", nil, location.ScopeSame)))

			out := submit()
			Expect(out.Instance.CurrentStepOrder).To(Equal(2))
			Expect(out.Instance.Step(1).Status).To(Equal(workflow.StepSkipped))

			done, err := act(out.Instance.ID, manager, workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Instance.Status).To(Equal(workflow.StatusApproved))
		})

		It("never auto-approves a submission with no applicable step", func() {
			only := compiledStep(1, "manager", nil, location.ScopeSame)
			only.Conditions = &workflow.RuleGroup{Rules: []workflow.Rule{{Field: "leave_type", Operator: workflow.OpEq, Value: "unpaid"}}}
			templates.templates = append(templates.templates, leaveTemplate(1, 2, only))

			_, err := engine.Submit(ctx, workflow.SubmitRequest{ResourceType: resource.TypeLeave, ResourceID: leaveID, ActorID: employee})
			Expect(internal.HasCode(err, internal.ErrCodeNoApplicableStep)).To(BeTrue())
			Expect(mem.resourceStatus(resource.TypeLeave, leaveID)).To(Equal(resource.StatusDraft))
		})
	})

	Describe("empty approver resolution", func() {
		BeforeEach(func() {
			templates.templates = append(templates.templates,
				leaveTemplate(1, 2, compiledStep(1, "role", []int64{roleNobody}, location.ScopeSame)))
		})

		It("surfaces the stall instead of approving", func() {
			out := submit()
			Expect(out.Stalled()).To(BeTrue())
			Expect(out.Instance.Status).To(Equal(workflow.StatusUnderReview))

			preview, err := engine.PreviewStep(ctx, out.Instance.ID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(preview.Current).To(BeTrue())
			Expect(preview.ResolutionEmpty).To(BeTrue())
		})
	})
})
