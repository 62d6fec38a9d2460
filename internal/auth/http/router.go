package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"

	_ "github.com/aussiebroadwan/usermgmt/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

var adminOnly = []string{string(domain.RoleAdmin)}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	limiter      *httpx.RateLimiter
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	AccountService    *service.AccountService
	PermissionService *service.PermissionService

	// Cache is pinged by /readyz when set (the Redis rate limit backend).
	Cache Pinger

	// RequestTimeout bounds every request context. Zero disables it.
	RequestTimeout time.Duration
}

// NewRouter builds a router. A nil limiter falls back to in-process buckets.
func NewRouter(
	verifier jwtx.Verifier,
	limiter *httpx.RateLimiter,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	if limiter == nil {
		limiter = httpx.NewRateLimiter(httpx.NewMemoryBackend())
	}
	return &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		limiter:      limiter,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}
}

func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Timeout(r.RequestTimeout),
	}

	r.registerAuth()
	r.registerUsers()
	r.registerPermissions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			User Management Service API
//	@version		0.1.0
//	@description	Account registration with email verification, login, and role/module based access control.
//	@description
//	@description				Session tokens are HS256-signed JWTs carrying the account's id, name, email and role.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/usermgmt
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AccountService: r.AccountService}

	// Unauthenticated endpoints - strict rate limit by IP (credential guessing)
	strict := r.limiter.ByIP(httpx.StrictLimit)

	r.Mux.Handle("POST /auth/register", httpx.Chain(http.HandlerFunc(h.HandleRegister), strict))
	r.Mux.Handle("POST /auth/login", httpx.Chain(http.HandlerFunc(h.HandleLogin), strict))
	r.Mux.Handle("POST /auth/verify-email", httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail), strict))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{AccountService: r.AccountService}
	perms := r.PermissionService

	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(adminOnly...),
		httpx.RequirePermission(perms, domain.ModuleUserManagement, string(domain.ActionRead)),
		r.limiter.ByAccount(httpx.ModerateLimit),
	)

	// Self-service endpoints - the account itself or an admin
	securedGet := httpx.Chain(http.HandlerFunc(h.HandleGet),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireSelfOrRole("id", adminOnly...),
		r.limiter.ByAccount(httpx.LenientLimit),
	)
	securedUpdate := httpx.Chain(http.HandlerFunc(h.HandleUpdate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireSelfOrRole("id", adminOnly...),
		r.limiter.ByAccount(httpx.ModerateLimit),
	)
	securedActivity := httpx.Chain(http.HandlerFunc(h.HandleActivity),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireSelfOrRole("id", adminOnly...),
		r.limiter.ByAccount(httpx.LenientLimit),
	)

	securedDelete := httpx.Chain(http.HandlerFunc(h.HandleDelete),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(adminOnly...),
		httpx.RequirePermission(perms, domain.ModuleUserManagement, string(domain.ActionDelete)),
		r.limiter.ByAccount(httpx.ModerateLimit),
	)
	securedAssignRole := httpx.Chain(http.HandlerFunc(h.HandleAssignRole),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(adminOnly...),
		httpx.RequirePermission(perms, domain.ModuleUserManagement, string(domain.ActionUpdate)),
		r.limiter.ByAccount(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /users", securedList)
	r.Mux.Handle("GET /users/{id}", securedGet)
	r.Mux.Handle("PUT /users/{id}", securedUpdate)
	r.Mux.Handle("DELETE /users/{id}", securedDelete)
	r.Mux.Handle("PUT /users/{id}/role", securedAssignRole)
	r.Mux.Handle("GET /users/{id}/activity", securedActivity)
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{PermissionService: r.PermissionService}

	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(adminOnly...),
		r.limiter.ByAccount(httpx.ModerateLimit),
	)
	securedSet := httpx.Chain(http.HandlerFunc(h.HandleSet),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(adminOnly...),
		r.limiter.ByAccount(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /permissions", securedList)
	r.Mux.Handle("PUT /permissions", securedSet)
}

func (r *Router) registerSystem() {
	checks := map[string]Pinger{"database": r.store}
	if r.Cache != nil {
		checks["cache"] = r.Cache
	}

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.limiter.ByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, checks),
			r.limiter.ByIP(httpx.LenientLimit),
		),
	)
}
