package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/transport/middleware"
)

type stubChecker struct {
	decision   authority.Decision
	err        error
	gotUser    int64
	gotPerm    string
	gotLocated bool
}

func (s *stubChecker) CheckAuthority(ctx context.Context, userID int64, permission string, locationID *int64, wc *authority.WorkflowContext) (authority.Decision, error) {
	s.gotUser, s.gotPerm, s.gotLocated = userID, permission, locationID != nil
	return s.decision, s.err
}

var _ = Describe("RequirePermission", func() {
	var (
		checker *stubChecker
		reached bool
		handler http.Handler
	)

	BeforeEach(func() {
		checker = &stubChecker{}
		reached = false
		handler = middleware.RequirePermission(checker, base, "location.manage")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		}))
	})

	serve := func(userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/locations", nil)
		if userID != 0 {
			req = req.WithContext(internal.ContextWithUserID(req.Context(), userID))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("rejects anonymous requests", func() {
		Expect(serve(0).Code).To(Equal(http.StatusUnauthorized))
		Expect(reached).To(BeFalse())
	})

	It("checks the permission without a location anchor", func() {
		checker.decision = authority.Decision{Authorized: true, Reason: authority.ReasonRoleScope}
		Expect(serve(7).Code).To(Equal(http.StatusOK))
		Expect(reached).To(BeTrue())
		Expect(checker.gotUser).To(Equal(int64(7)))
		Expect(checker.gotPerm).To(Equal("location.manage"))
		Expect(checker.gotLocated).To(BeFalse())
	})

	It("answers a denial with 403 and the reason", func() {
		checker.decision = authority.Decision{Reason: authority.ReasonNoMatchingGrant}
		rec := serve(7)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring(string(authority.ReasonNoMatchingGrant)))
		Expect(reached).To(BeFalse())
	})
})
