// @title FitDesk API
// @version 1.0.0
// @description Multi-tenant fitness center management backend
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@fitdesk.example

// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fitdesk/fitdesk/internal/audit"
	"github.com/fitdesk/fitdesk/internal/guard"
	"github.com/fitdesk/fitdesk/internal/identity"
	"github.com/fitdesk/fitdesk/internal/invoice"
	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/plan"
	"github.com/fitdesk/fitdesk/internal/scope"
	"github.com/fitdesk/fitdesk/internal/subscription"
	"github.com/fitdesk/fitdesk/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService     *identity.Service
	registry            *tenant.Registry
	resolver            *tenant.Resolver
	guard               *guard.Guard
	subscriptionService *subscription.Service
	invoiceService      *invoice.Service
	auditLogger         audit.Logger

	members       scope.Store[*member.Member]
	plans         scope.Store[*plan.Plan]
	subscriptions scope.Store[*subscription.Subscription]
	invoices      scope.Store[*invoice.Invoice]
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	registry *tenant.Registry,
	resolver *tenant.Resolver,
	g *guard.Guard,
	subscriptionService *subscription.Service,
	invoiceService *invoice.Service,
	auditLogger audit.Logger,
	members scope.Store[*member.Member],
	plans scope.Store[*plan.Plan],
	subscriptions scope.Store[*subscription.Subscription],
	invoices scope.Store[*invoice.Invoice],
) *Handler {
	return &Handler{
		identityService:     identityService,
		registry:            registry,
		resolver:            resolver,
		guard:               g,
		subscriptionService: subscriptionService,
		invoiceService:      invoiceService,
		auditLogger:         auditLogger,
		members:             members,
		plans:               plans,
		subscriptions:       subscriptions,
		invoices:            invoices,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Every request gets tenant resolution, optional authentication and the
	// tenant-boundary check, in that order. The guard consults its own
	// allow-list for public routes.
	r.Use(h.ResolveTenantMiddleware)
	r.Use(h.AuthMiddleware)
	r.Use(h.GuardMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Authentication
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.With(RequireAuth).Get("/auth/me", h.GetCurrentPrincipal)

		// Center registration and directory
		r.Route("/centers", func(r chi.Router) {
			r.Post("/register", h.RegisterCenter)
			r.Get("/availability", h.CheckAvailability)
			r.With(RequireAuth).Get("/mine", h.GetOwnCenter)
			r.With(RequireAuth).Put("/routing-key", h.ChangeRoutingKey)
		})

		// Platform surface
		r.Route("/platform", func(r chi.Router) {
			r.Use(RequireSuperAdmin)
			r.Get("/centers", h.ListCenters)
			r.Get("/centers/{centerID}/principals", h.ListCenterPrincipals)
			r.Post("/centers/{centerID}/activate", h.ActivateCenter)
			r.Post("/centers/{centerID}/deactivate", h.DeactivateCenter)
			r.Post("/principals", h.ProvisionPrincipal)
		})

		// Tenant-scoped business routes
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Route("/members", func(r chi.Router) {
				r.Post("/", h.CreateMember)
				r.Get("/", h.ListMembers)
				r.Get("/{memberID}", h.GetMember)
				r.Put("/{memberID}", h.UpdateMember)
				r.Delete("/{memberID}", h.DeleteMember)
			})

			r.Route("/plans", func(r chi.Router) {
				r.Post("/", h.CreatePlan)
				r.Get("/", h.ListPlans)
				r.Get("/{planID}", h.GetPlan)
				r.Put("/{planID}", h.UpdatePlan)
				r.Delete("/{planID}", h.DeletePlan)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", h.CreateSubscription)
				r.Get("/", h.ListSubscriptions)
				r.Get("/{subscriptionID}", h.GetSubscription)
				r.Post("/{subscriptionID}/activate", h.ActivateSubscription)
				r.Post("/{subscriptionID}/cancel", h.CancelSubscription)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Post("/", h.IssueInvoice)
				r.Get("/", h.ListInvoices)
				r.Get("/{invoiceID}", h.GetInvoice)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Check if the service is running
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fitdesk",
	})
}

// scoped builds the per-request tenant-scoped repository for a store, from
// the resolved tenant and the authenticated principal.
func scoped[T scope.TenantOwned](r *http.Request, store scope.Store[T], auditLogger audit.Logger) *scope.Repository[T] {
	p := PrincipalFromContext(r.Context())
	resolved, _ := tenant.ResolvedFromContext(r.Context())
	return scope.NewRepository(store, p, resolved, auditLogger)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
