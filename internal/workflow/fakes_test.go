package workflow_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/audit"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/notification"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

// memory is an in-process stand-in for the instance, audit, notification and
// resource tables. Transactions snapshot the state and restore it on error.
type memory struct {
	txMu       sync.Mutex
	nextID     int64
	nextStepID int64
	instances  map[int64]*workflow.Instance
	resources  map[string]*resource.Resource
	audits     []audit.Entry
	notes      []notification.Message
	failNotify bool
}

func newMemory() *memory {
	return &memory{
		instances: make(map[int64]*workflow.Instance),
		resources: make(map[string]*resource.Resource),
	}
}

func resKey(t resource.Type, id int64) string {
	return fmt.Sprintf("%s:%d", t, id)
}

func (m *memory) addResource(r *resource.Resource) {
	m.resources[resKey(r.Type, r.ID)] = r
}

func (m *memory) resourceStatus(t resource.Type, id int64) resource.Status {
	return m.resources[resKey(t, id)].Status
}

func (m *memory) notesFor(userID int64) []notification.Message {
	var out []notification.Message
	for _, n := range m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memory) Load(_ context.Context, t resource.Type, id int64) (*resource.Resource, error) {
	r, ok := m.resources[resKey(t, id)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memory) SetResourceStatus(_ context.Context, t resource.Type, id int64, status resource.Status) error {
	r, ok := m.resources[resKey(t, id)]
	if !ok {
		return internal.NewNotFoundError("resource not found", internal.ErrCodeResourceNotFound)
	}
	r.Status = status
	return nil
}

func (m *memory) Get(_ context.Context, id int64) (*workflow.Instance, error) {
	inst, ok := m.instances[id]
	if !ok {
		return nil, nil
	}
	return inst.Clone(), nil
}

func (m *memory) FindOpen(_ context.Context, t resource.Type, id int64) (*workflow.Instance, error) {
	for _, inst := range m.instances {
		if inst.ResourceType == t && inst.ResourceID == id && inst.IsOpen() {
			return inst.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memory) begin() func() {
	instances := make(map[int64]*workflow.Instance, len(m.instances))
	for id, inst := range m.instances {
		instances[id] = inst.Clone()
	}
	statuses := make(map[string]resource.Status, len(m.resources))
	for k, r := range m.resources {
		statuses[k] = r.Status
	}
	audits, notes := len(m.audits), len(m.notes)
	return func() {
		m.instances = instances
		for k, s := range statuses {
			m.resources[k].Status = s
		}
		m.audits = m.audits[:audits]
		m.notes = m.notes[:notes]
	}
}

func (m *memory) WithinTx(_ context.Context, fn func(uow workflow.UnitOfWork) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	rollback := m.begin()
	if err := fn(m); err != nil {
		rollback()
		return err
	}
	return nil
}

func (m *memory) WithinInstance(ctx context.Context, id int64, fn func(uow workflow.UnitOfWork, locked *workflow.Instance) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	locked, _ := m.Get(ctx, id)
	if locked == nil {
		return internal.NewNotFoundError("instance not found", internal.ErrCodeInstanceNotFound)
	}
	rollback := m.begin()
	if err := fn(m, locked); err != nil {
		rollback()
		return err
	}
	return nil
}

func (m *memory) Instances() workflow.InstanceStore { return m }
func (m *memory) Audit() audit.Sink                 { return m }
func (m *memory) Notifier() notification.Sink       { return m }
func (m *memory) Resources() resource.StatusSyncer  { return m }

func (m *memory) Record(_ context.Context, e audit.Entry) error {
	m.audits = append(m.audits, e)
	return nil
}

func (m *memory) Notify(_ context.Context, msg notification.Message) error {
	if m.failNotify {
		return fmt.Errorf("outbox unavailable")
	}
	m.notes = append(m.notes, msg)
	return nil
}

func (m *memory) List(_ context.Context, f audit.Filter) ([]*audit.Log, error) {
	var out []*audit.Log
	for i := len(m.audits) - 1; i >= 0; i-- {
		e := m.audits[i]
		if e.ResourceType == f.ResourceType && e.ResourceID == f.ResourceID {
			out = append(out, &audit.Log{ID: int64(i + 1), ActorID: e.ActorID, Action: e.Action, ResourceType: e.ResourceType, ResourceID: e.ResourceID})
		}
	}
	return out, nil
}

func (m *memory) Create(_ context.Context, inst *workflow.Instance) error {
	m.nextID++
	inst.ID = m.nextID
	for _, s := range inst.Steps {
		m.nextStepID++
		s.ID = m.nextStepID
		s.InstanceID = inst.ID
	}
	m.instances[inst.ID] = inst.Clone()
	return nil
}

func (m *memory) CompleteStep(_ context.Context, step *workflow.StepInstance) error {
	inst := m.instances[step.InstanceID]
	for _, s := range inst.Steps {
		if s.ID != step.ID {
			continue
		}
		if s.Status != workflow.StepPending {
			return internal.NewStateConflict("step is no longer pending")
		}
		cp := *step
		*s = cp
		return nil
	}
	return fmt.Errorf("step %d not found", step.ID)
}

func (m *memory) AppendSteps(_ context.Context, steps []*workflow.StepInstance) error {
	for _, s := range steps {
		m.nextStepID++
		s.ID = m.nextStepID
		cp := *s
		inst := m.instances[s.InstanceID]
		inst.Steps = append(inst.Steps, &cp)
	}
	return nil
}

func (m *memory) UpdateState(_ context.Context, inst *workflow.Instance) error {
	stored := m.instances[inst.ID]
	stored.Status = inst.Status
	stored.CurrentStepOrder = inst.CurrentStepOrder
	stored.CompletedAt = inst.CompletedAt
	return nil
}

type memoryTemplates struct {
	templates []*workflow.Template
}

func (t *memoryTemplates) GetByID(_ context.Context, id int64) (*workflow.Template, error) {
	for _, tmpl := range t.templates {
		if tmpl.ID == id {
			return tmpl, nil
		}
	}
	return nil, nil
}

func (t *memoryTemplates) List(_ context.Context, _ workflow.TemplateFilter) ([]*workflow.Template, error) {
	return t.templates, nil
}

func (t *memoryTemplates) ActiveFor(_ context.Context, rt resource.Type, locationIDs []int64) ([]*workflow.Template, error) {
	var out []*workflow.Template
	for _, tmpl := range t.templates {
		if tmpl.ResourceType != rt || tmpl.Status != workflow.TemplateActive {
			continue
		}
		for _, id := range locationIDs {
			if tmpl.LocationID == id {
				out = append(out, tmpl)
			}
		}
	}
	return out, nil
}

func (t *memoryTemplates) Create(_ context.Context, tmpl *workflow.Template) error {
	tmpl.ID = int64(len(t.templates) + 1)
	tmpl.Version = 1
	t.templates = append(t.templates, tmpl)
	return nil
}

func (t *memoryTemplates) SetStatus(_ context.Context, id int64, status workflow.TemplateStatus) error {
	for _, tmpl := range t.templates {
		if tmpl.ID == id {
			tmpl.Status = status
		}
	}
	return nil
}

// authStore serves the authority and approver resolvers from maps. Role
// holders are placed at their primary location.
type authStore struct {
	users       map[int64]*authority.User
	assignments map[int64][]authority.RoleAssignment
	grants      map[int64][]authority.Grant
	delegations map[int64][]authority.Delegation
	paths       map[int64]string
}

func (s *authStore) GetUser(_ context.Context, id int64) (*authority.User, error) {
	return s.users[id], nil
}

func (s *authStore) ActiveRoleAssignments(_ context.Context, userID int64) ([]authority.RoleAssignment, error) {
	return s.assignments[userID], nil
}

func (s *authStore) ActiveGrants(_ context.Context, userID, permissionID int64) ([]authority.Grant, error) {
	var out []authority.Grant
	for _, g := range s.grants[userID] {
		if g.PermissionID == permissionID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *authStore) ActiveDelegations(_ context.Context, delegateID, permissionID int64) ([]authority.Delegation, error) {
	var out []authority.Delegation
	for _, d := range s.delegations[delegateID] {
		if d.PermissionID == permissionID && d.Status == authority.DelegationActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *authStore) CandidatesForRoles(_ context.Context, roleIDs []int64) ([]authority.Candidate, error) {
	wanted := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		wanted[id] = true
	}
	var out []authority.Candidate
	for userID, list := range s.assignments {
		u := s.users[userID]
		if u == nil || !u.Active {
			continue
		}
		for _, a := range list {
			if wanted[a.RoleID] {
				out = append(out, authority.Candidate{UserID: userID, RoleID: a.RoleID, LocationPath: u.LocationPath})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *authStore) LocationPath(_ context.Context, id int64) (string, error) {
	return s.paths[id], nil
}

func (s *authStore) AncestorsOf(_ context.Context, id int64) ([]int64, error) {
	ids, err := location.ParsePath(s.paths[id])
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return ids[:len(ids)-1], nil
}

func (s *authStore) Path(_ context.Context, id int64) (string, error) {
	path, ok := s.paths[id]
	if !ok {
		return "", internal.NewNotFoundError("location not found", internal.ErrCodeLocationNotFound)
	}
	return path, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.WorkflowTransitionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if wt, ok := ev.(*events.WorkflowTransitionEvent); ok {
		p.events = append(p.events, wt)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventType())
	}
	return out
}

func (p *recordingPublisher) last() *events.WorkflowTransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func window(from time.Time, until time.Duration) authority.Window {
	end := from.Add(until)
	return authority.Window{From: from, Until: &end}
}
