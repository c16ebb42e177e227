// Package httpapi is the HTTP transport of the server: the JSON API under
// /api/v1, the admin dashboard, metrics and health endpoints, and the
// session gate protecting them.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/assets"
	"github.com/dmitrijs2005/skeleton/internal/server/mail"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserService is the part of services.UserService the HTTP API uses.
type UserService interface {
	SessionVerifier
	Register(ctx context.Context, isAdmin bool, username, password, email string) (int64, error)
	Authenticate(ctx context.Context, email, password string) (*services.SessionToken, error)
	VerifyPassword(ctx context.Context, email, password string) (*models.User, error)
	ChangePassword(ctx context.Context, email, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, username, password, email string) error
	DeleteUser(ctx context.Context, id int64) error
}

// Mailer queues outgoing mail.
type Mailer interface {
	Enqueue(ctx context.Context, msg mail.Message) bool
}

type Server struct {
	users    UserService
	mailer   Mailer
	composer *mail.Composer
	assets   assets.Store
	public   assets.Store
	gatherer prometheus.Gatherer
	platform string
	log      logging.Logger
}

func NewServer(users UserService, mailer Mailer, store, public assets.Store, gatherer prometheus.Gatherer, platform string, log logging.Logger) *Server {
	return &Server{
		users:    users,
		mailer:   mailer,
		composer: mail.NewComposer(platform),
		assets:   store,
		public:   public,
		gatherer: gatherer,
		platform: platform,
		log:      log,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, accessLog(s.log), recoverer(s.log))

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.logout).Methods(http.MethodGet)
	api.HandleFunc("/user/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/user/forgot_password", s.forgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/user/reset_password", s.resetPassword).Methods(http.MethodPost)

	user := api.PathPrefix("/user").Subrouter()
	user.Use(Gate(s.users, services.LevelUser, s.log))
	user.HandleFunc("", s.me).Methods(http.MethodGet)
	user.HandleFunc("/update", s.updateProfile).Methods(http.MethodPut)
	user.HandleFunc("/delete", s.deleteAccount).Methods(http.MethodDelete)
	user.HandleFunc("/change_password", s.changePassword).Methods(http.MethodPost)

	dashboard := r.PathPrefix("/dashboard").Subrouter()
	dashboard.Use(Gate(s.users, services.LevelAdmin, s.log))
	dashboard.HandleFunc("/login", s.dashboardLogin).Methods(http.MethodGet)
	dashboard.PathPrefix("/").HandlerFunc(s.dashboardAsset).Methods(http.MethodGet)

	r.PathPrefix("/").HandlerFunc(s.publicAsset).Methods(http.MethodGet, http.MethodHead)

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "HTTP server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.log.Info(ctx, "shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
