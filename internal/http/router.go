package http

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"attachke/internal/domain/user"
	"attachke/internal/http/handlers"
	httpmw "attachke/internal/http/middleware"
)

type RouterDependencies struct {
	AuthHandler        *handlers.AuthHandler
	OpportunityHandler *handlers.OpportunityHandler
	ApplicationHandler *handlers.ApplicationHandler
	PaymentHandler     *handlers.PaymentHandler
	AdminHandler       *handlers.AdminHandler
	AuthMiddleware     *httpmw.AuthMiddleware
	Logger             *zap.SugaredLogger
	RequestTimeout     time.Duration
}

type Router struct {
	deps RouterDependencies
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	return &Router{deps: deps}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := httpmw.Chain(r.baseHandler(),
		httpmw.RequestID,
		httpmw.Logging(r.deps.Logger),
		httpmw.BodyLimit(maxBodyBytes),
		httpmw.Recover(r.deps.Logger),
		httpmw.Timeout(r.deps.RequestTimeout),
	)
	handler.ServeHTTP(w, req)
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodPost && path == "/auth/register":
			r.deps.AuthHandler.Register(w, req)
			return
		case req.Method == http.MethodPost && path == "/auth/login":
			r.deps.AuthHandler.Login(w, req)
			return
		case req.Method == http.MethodGet && path == "/opportunities":
			r.deps.OpportunityHandler.List(w, req)
			return
		case req.Method == http.MethodGet && strings.HasPrefix(path, "/opportunities/"):
			r.deps.OpportunityHandler.Get(w, req)
			return
		case req.Method == http.MethodPost && path == "/payments/mpesa/callback":
			// The provider cannot send a bearer token; the handler validates
			// by transaction id instead.
			r.deps.PaymentHandler.Callback(w, req)
			return
		}

		if path == "/auth/me" || strings.HasPrefix(path, "/applications") || strings.HasPrefix(path, "/admin") {
			protected := r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				r.handleProtected(w, req)
			}))
			protected.ServeHTTP(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodGet && path == "/auth/me":
		r.deps.AuthHandler.Me(w, req)
		return
	case req.Method == http.MethodPost && path == "/applications":
		httpmw.RequireRole(user.RoleApplicant)(http.HandlerFunc(r.deps.ApplicationHandler.Create)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/applications":
		r.deps.ApplicationHandler.List(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/applications/") && strings.HasSuffix(path, "/payment"):
		httpmw.RequireRole(user.RoleApplicant)(http.HandlerFunc(r.deps.PaymentHandler.Initiate)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/applications/") && strings.HasSuffix(path, "/payment/status"):
		httpmw.RequireRole(user.RoleApplicant)(http.HandlerFunc(r.deps.PaymentHandler.Status)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/applications/"):
		r.deps.ApplicationHandler.Get(w, req)
		return
	case req.Method == http.MethodPatch && strings.HasPrefix(path, "/applications/"):
		httpmw.RequireRole(user.RoleApplicant)(http.HandlerFunc(r.deps.ApplicationHandler.Update)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/admin/opportunities":
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.OpportunityHandler.ListAll)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && path == "/admin/opportunities":
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.OpportunityHandler.Create)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/admin/opportunities/") && strings.HasSuffix(path, "/approve"):
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.OpportunityHandler.Approve)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/admin/opportunities/") && strings.HasSuffix(path, "/reject"):
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.OpportunityHandler.Reject)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPut && strings.HasPrefix(path, "/admin/opportunities/"):
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.OpportunityHandler.Update)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodDelete && strings.HasPrefix(path, "/admin/opportunities/"):
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.OpportunityHandler.Delete)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/admin/applications":
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.ApplicationHandler.ListForReview)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && strings.HasPrefix(path, "/admin/applications/") && strings.HasSuffix(path, "/status"):
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.ApplicationHandler.UpdateStatus)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/admin/stats":
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.AdminHandler.Stats)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && path == "/admin/sync/adzuna":
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.AdminHandler.SyncAdzuna)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && path == "/admin/sync/jooble":
		httpmw.RequireRole(user.RoleAdmin)(http.HandlerFunc(r.deps.AdminHandler.SyncJooble)).ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}
