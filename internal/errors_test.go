package internal_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal"
)

var _ = Describe("AppError", func() {
	It("carries the denial reason and permission", func() {
		err := internal.NewAuthorizationDenied("leave.approve", "role_scope")
		Expect(err.StatusCode).To(Equal(http.StatusForbidden))
		Expect(err.Code).To(Equal(internal.ErrCodeAuthorizationDenied))
		Expect(err.Details).To(Equal(internal.DenialDetails{Reason: "role_scope", Permission: "leave.approve"}))

		body, marshalErr := json.Marshal(err)
		Expect(marshalErr).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"reason":"role_scope"`))
	})

	It("is found through wrapping", func() {
		wrapped := fmt.Errorf("approve: %w", internal.NewStateConflict("step already decided"))
		Expect(internal.HasCode(wrapped, internal.ErrCodeStateConflict)).To(BeTrue())
		Expect(internal.HasCode(wrapped, internal.ErrCodeInstanceNotFound)).To(BeFalse())
		Expect(internal.HasCode(stderrors.New("plain"), internal.ErrCodeStateConflict)).To(BeFalse())
	})

	It("unwraps to its cause", func() {
		cause := stderrors.New("connection reset")
		err := internal.NewInternalError("failed to load", cause)
		Expect(stderrors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("failed to load: connection reset"))
	})

	It("reports the field message for validation errors", func() {
		err := internal.NewValidationFieldError("days", "days must be positive", internal.ErrCodeValidationFailed)
		Expect(err.Error()).To(Equal("days must be positive"))
		Expect(err.GetDetailedMessage()).To(Equal("days must be positive"))

		status, body := err.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(Equal(internal.Response{Error: err}))
	})
})

var _ = Describe("Request context", func() {
	It("round-trips the user id and source address", func() {
		ctx := internal.ContextWithUserID(context.Background(), 42)
		ctx = internal.ContextWithSourceIP(ctx, "10.0.0.7")
		Expect(internal.UserIDFromContext(ctx)).To(Equal(int64(42)))
		Expect(internal.SourceIPFromContext(ctx)).To(Equal("10.0.0.7"))
	})

	It("returns zero values for an empty context", func() {
		Expect(internal.UserIDFromContext(context.Background())).To(BeZero())
		Expect(internal.SourceIPFromContext(context.Background())).To(BeEmpty())
	})
})
