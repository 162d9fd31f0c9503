package workflow_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal/audit"
	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/transport"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

type routingEngine struct {
	inst *workflow.Instance
	got  *workflow.ActionRequest
}

func (e *routingEngine) Submit(context.Context, workflow.SubmitRequest) (*workflow.Outcome, error) {
	return nil, nil
}

func (e *routingEngine) Act(_ context.Context, req workflow.ActionRequest) (*workflow.Outcome, error) {
	e.got = &req
	return &workflow.Outcome{Instance: e.inst}, nil
}

func (e *routingEngine) Get(context.Context, int64) (*workflow.Instance, error) {
	return e.inst, nil
}

func (e *routingEngine) PreviewStep(context.Context, int64, int) (*workflow.StepPreview, error) {
	return nil, nil
}

func (e *routingEngine) History(context.Context, int64, int) ([]*audit.Log, error) {
	return nil, nil
}

var _ = Describe("Handler decline routing", func() {
	var (
		engine *routingEngine
		router *chi.Mux
	)

	BeforeEach(func() {
		engine = &routingEngine{inst: &workflow.Instance{
			ID:               4,
			ResourceType:     resource.TypeTimesheet,
			Status:           workflow.StatusUnderReview,
			CurrentStepOrder: 1,
			Steps: []*workflow.StepInstance{
				{StepOrder: 1, Attempt: 1, Status: workflow.StepPending},
				{StepOrder: 2, Attempt: 1, Status: workflow.StepPending},
			},
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		h := workflow.NewHandler(transport.NewBaseHandler(logger), engine, nil, map[resource.Type]workflow.DeclineRouting{
			resource.TypeTimesheet: {Kind: workflow.RouteBackToStep, Step: 1},
		})
		router = chi.NewRouter()
		router.Post("/workflow-instances/{id}/actions", h.ActOnInstance)
	})

	decline := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/workflow-instances/4/actions", strings.NewReader(body))
		req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 9}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("terminates when the default would route the first step back to itself", func() {
		rec := decline(`{"action":"decline"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(engine.got.Routing).To(Equal(&workflow.DeclineRouting{Kind: workflow.RouteTerminate}))
	})

	It("applies the default once an earlier step exists", func() {
		engine.inst.CurrentStepOrder = 2
		rec := decline(`{"action":"decline"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(engine.got.Routing).To(Equal(&workflow.DeclineRouting{Kind: workflow.RouteBackToStep, Step: 1}))
	})

	It("keeps a routing the client named and rejects a malformed one", func() {
		rec := decline(`{"action":"decline","routing":"back_to_owner"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(engine.got.Routing.Kind).To(Equal(workflow.RouteBackToOwner))

		engine.got = nil
		rec = decline(`{"action":"decline","routing":"sideways"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(engine.got).To(BeNil())
	})
})
