package middleware

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

type AuthorityChecker interface {
	CheckAuthority(ctx context.Context, userID int64, permission string, locationID *int64, wc *authority.WorkflowContext) (authority.Decision, error)
}

// RequirePermission admits the request only when the authenticated user holds
// permission through a global grant or a global delegation. Must run after the
// auth middleware.
func RequirePermission(checker AuthorityChecker, base *transport.BaseHandler, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := errors.UserIDFromContext(r.Context())
			if userID == 0 {
				base.WriteAppError(w, errors.ErrInvalidToken)
				return
			}

			decision, err := checker.CheckAuthority(r.Context(), userID, permission, nil, nil)
			if err != nil {
				base.WriteAppError(w, err)
				return
			}
			if !decision.Authorized {
				base.Logger.Warn("access denied",
					"user_id", userID,
					"permission", permission,
					"reason", decision.Reason)
				base.WriteAppError(w, errors.NewAuthorizationDenied(permission, string(decision.Reason)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
