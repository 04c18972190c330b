package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/kmkrofficial/signature/internal/api/middleware"
	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/gate"
	"github.com/kmkrofficial/signature/internal/issuers"
	"github.com/kmkrofficial/signature/internal/service"
	"github.com/kmkrofficial/signature/internal/tasks"
)

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

type Server struct {
	gate        *gate.Gate
	provider    *issuers.Provider
	authService *service.AuthService
	content     *service.ContentService
	contact     *service.ContactService
	taskManager *tasks.Manager
	auditor     core.Auditor

	cookie         CookieOptions
	loginLimiter   *middleware.RateLimiter
	counterLimiter *middleware.RateLimiter
	regions        *regionRegistry
}

func NewServer(
	g *gate.Gate,
	provider *issuers.Provider,
	contentService *service.ContentService,
	contactService *service.ContactService,
	taskManager *tasks.Manager,
	auditor core.Auditor,
	cookie CookieOptions,
	loginRatePerMinute int,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Server{
		gate:           g,
		provider:       provider,
		authService:    service.NewAuthService(provider, g, auditor),
		content:        contentService,
		contact:        contactService,
		taskManager:    taskManager,
		auditor:        auditor,
		cookie:         cookie,
		loginLimiter:   middleware.NewRateLimiter(loginRatePerMinute),
		counterLimiter: middleware.NewRateLimiter(counterRatePerMinute),
		regions:        newRegionRegistry(),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	guarded := s.gate.Middleware(s.provider, s.cookie.Name)
	opts := s.gate.Options()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.HandleFunc("GET "+PortfolioRoute, s.handlePortfolio)
	mux.HandleFunc("POST "+ContactRoute, s.handleContact)

	// blog; drafts are only listed through the guarded section listing
	mux.HandleFunc("GET "+BlogRoute, s.handleListPosts(guarded(http.HandlerFunc(s.handleListSection))))
	mux.HandleFunc("GET "+PostRoute, s.handleGetPost)
	mux.Handle("POST "+PostViewRoute, s.counterLimiter.Middleware(http.HandlerFunc(s.handleViewPost)))
	mux.Handle("POST "+PostLikeRoute, s.counterLimiter.Middleware(http.HandlerFunc(s.handleLikePost)))
	mux.Handle("DELETE "+PostLikeRoute, s.counterLimiter.Middleware(http.HandlerFunc(s.handleLikePost)))

	// authentication
	mux.Handle("POST "+LoginRoute, s.loginLimiter.Middleware(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST "+TokenLoginRoute, s.loginLimiter.Middleware(http.HandlerFunc(s.handleTokenLogin)))
	mux.HandleFunc("POST "+LogoutRoute, s.handleLogout)
	mux.Handle("GET "+MeRoute, guarded(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST "+ActivityRoute, guarded(http.HandlerFunc(s.handleActivity)))
	mux.Handle("GET "+EventsRoute, guarded(http.HandlerFunc(s.handleEvents)))

	// pages
	mux.Handle("GET "+opts.LoginPath, guarded(http.HandlerFunc(s.handleLoginPage)))
	mux.HandleFunc("GET "+opts.UnauthorizedPath, s.handleUnauthorizedPage)
	mux.Handle("GET "+AdminRoute, guarded(http.HandlerFunc(s.handleAdminPage)))

	// content
	mux.Handle("GET "+SectionRoute, guarded(http.HandlerFunc(s.handleListSection)))
	mux.Handle("POST "+SectionRoute, guarded(http.HandlerFunc(s.handleCreateDocument)))
	mux.Handle("PUT "+DocumentRoute, guarded(http.HandlerFunc(s.handleUpdateDocument)))
	mux.Handle("DELETE "+DocumentRoute, guarded(http.HandlerFunc(s.handleDeleteDocument)))
	mux.Handle("GET "+MessagesRoute, guarded(http.HandlerFunc(s.handleListMessages)))

	// media
	mux.Handle("GET "+MediaRoute, guarded(http.HandlerFunc(s.handleListImages)))
	mux.Handle("POST "+MediaRoute, guarded(http.HandlerFunc(s.handleUploadImage)))
	mux.Handle("DELETE "+MediaRoute, guarded(http.HandlerFunc(s.handleDeleteImage)))

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)
	mux.Handle(AuditParent, guarded(adminMux))
	mux.Handle(TaskParent, guarded(adminMux))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}

// NewHTTPServer wraps handler with the timeouts used for serving. Request contexts
// derive from ctx and are canceled once Shutdown starts, so open event streams end
// instead of holding the shutdown until its deadline.
func NewHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(ctx)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	server.RegisterOnShutdown(cancel)
	return server
}
