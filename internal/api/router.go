package api

import (
	"context"                             // Request-scoped cancellation
	"fmt"                                 // Error wrapping
	"net/http"                            // HTTP status codes
	"stroke_registry/internal/middleware" // Custom package for middleware
	"stroke_registry/internal/service"    // Auth and patient services
	"stroke_registry/internal/session"    // Session state
	"stroke_registry/web"                 // Embedded HTML templates

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/gorilla/csrf"    // CSRF protection for form posts
	"github.com/sirupsen/logrus" // Logging library
)

// Deps are the services the router dispatches to
type Deps struct {
	Auth     *service.AuthService
	Patients *service.PatientService
	Sessions *session.Manager
	Health   func(ctx context.Context) error // Optional readiness check
}

// Options control transport-level behaviour
type Options struct {
	CSRFEnabled    bool
	CSRFKey        []byte
	SecureCookie   bool
	TrustedProxies []string
}

// NewRouter builds the HTTP handler for every route
func NewRouter(deps Deps, opts Options) (http.Handler, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), middleware.RequestLogger(), deps.Sessions.Middleware())

	sessions := deps.Sessions

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })
	r.GET("/healthz", healthHandler(deps.Health))

	// Auth routes
	r.GET("/register", RegisterPageHandler(sessions))
	r.POST("/register", RegisterHandler(deps.Auth, sessions))
	r.GET("/login", LoginPageHandler(sessions))
	r.POST("/login", LoginHandler(deps.Auth, sessions))
	r.GET("/logout", LogoutHandler(deps.Auth, sessions))

	// Protected routes
	protected := r.Group("")
	protected.Use(middleware.RequireLogin(deps.Auth, sessions))
	protected.GET("/dashboard", DashboardHandler(deps.Patients, sessions))
	protected.GET("/patients", ListPatientsHandler(deps.Patients, sessions))
	protected.GET("/patients/create", CreatePatientPageHandler(sessions))
	protected.POST("/patients/create", CreatePatientHandler(deps.Patients, sessions))
	protected.GET("/patients/view/:id", ViewPatientHandler(deps.Patients, sessions))
	protected.GET("/patients/edit/:id", EditPatientPageHandler(deps.Patients, sessions))
	protected.POST("/patients/edit/:id", EditPatientHandler(deps.Patients, sessions))

	if !opts.CSRFEnabled {
		return r, nil
	}
	return withCSRF(r, opts), nil
}

func withCSRF(next http.Handler, opts Options) http.Handler {
	protect := csrf.Protect(opts.CSRFKey,
		csrf.Secure(opts.SecureCookie),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName("csrf_token"),
		csrf.FieldName("csrf_token"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logrus.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"reason": csrf.FailureReason(r),
			}).Warn("CSRF check failed")
			http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
		})),
	)
	h := protect(next)
	if opts.SecureCookie {
		return h
	}
	// served over plain HTTP: skip the TLS-only Referer check
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				logrus.WithError(err).Error("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
