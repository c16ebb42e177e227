package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/metrics"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
	"github.com/gorilla/mux"
)

// SessionVerifier checks a bearer pair for a privilege level.
type SessionVerifier interface {
	VerifySession(ctx context.Context, userID int64, token string, level services.Level) (*models.User, error)
}

type identityKey struct{}

// IdentityFromContext returns the user the gate admitted.
func IdentityFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityKey{}).(*models.User)
	return u, ok
}

func withIdentity(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, identityKey{}, u)
}

// Gate admits a request only when it carries a session cookie valid for
// level. Rejected requests never reach the wrapped handler.
func Gate(verifier SessionVerifier, level services.Level, log logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			cookie, err := r.Cookie(common.SessionCookieName)
			if err != nil {
				reject(w, r, log, common.ErrorUnauthorized)
				return
			}

			id, token, err := services.ParseBearer(cookie.Value)
			if err != nil {
				reject(w, r, log, common.ErrorUnauthorized)
				return
			}

			user, err := verifier.VerifySession(ctx, id, token, level)
			if err != nil {
				reject(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(ctx, user)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	metrics.RecordGateRejection("http", services.Outcome(err))
	log.Debug(r.Context(), "session rejected", "path", r.URL.Path, "error", err)
	writeError(w, r, log, err)
}
