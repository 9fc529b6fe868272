package api

import (
	"errors"                           // Error matching
	"net/http"                         // HTTP status codes
	"stroke_registry/internal/service" // Auth service
	"stroke_registry/internal/session" // Session state

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Request struct for register and login forms
type CredentialsForm struct {
	Email    string `form:"email" binding:"required"`    // Email must be provided
	Password string `form:"password" binding:"required"` // Password must be provided
}

// RegisterPageHandler renders the registration form
func RegisterPageHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, sessions, http.StatusOK, "register.html", "Register", nil)
	}
}

// RegisterHandler creates a user and sends them to the login page
func RegisterHandler(auth *service.AuthService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsForm // Bind form to struct
		if err := c.ShouldBind(&req); err != nil {
			flashRedirect(c, sessions, "danger", "Email and password are required.", "/register")
			return
		}
		_, err := auth.Register(c.Request.Context(), req.Email, req.Password)
		switch {
		case err == nil:
			flashRedirect(c, sessions, "success", "Registration successful! Please login.", "/login")
		case errors.Is(err, service.ErrInvalidEmail):
			flashRedirect(c, sessions, "danger", "Invalid email format.", "/register")
		case errors.Is(err, service.ErrEmailTaken):
			flashRedirect(c, sessions, "danger", "Email already registered.", "/register")
		case errors.Is(err, service.ErrMalformedInput):
			flashRedirect(c, sessions, "danger", "Please choose a different password.", "/register")
		default:
			logrus.WithError(err).Error("Registration failed")
			flashRedirect(c, sessions, "danger", "Registration failed. Please try again.", "/register")
		}
	}
}

// LoginPageHandler renders the login form
func LoginPageHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, sessions, http.StatusOK, "login.html", "Login", nil)
	}
}

// LoginHandler authenticates a user and starts their session.
// Unknown email and wrong password render the same response.
func LoginHandler(auth *service.AuthService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		var req CredentialsForm
		err := c.ShouldBind(&req)
		if err == nil {
			_, err = auth.Login(c.Request.Context(), sess, req.Email, req.Password)
		}
		if err == nil {
			flashRedirect(c, sessions, "success", "Logged in successfully.", "/dashboard")
			return
		}
		if !errors.Is(err, service.ErrInvalidCredentials) {
			// binding errors land here too; they are credential failures to the user
			logrus.WithError(err).Warn("Login error")
		}
		sess.AddFlash("danger", "Incorrect email or password.")
		render(c, sessions, http.StatusUnauthorized, "login.html", "Login", nil)
	}
}

// LogoutHandler clears the session unconditionally
func LogoutHandler(auth *service.AuthService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		if err := auth.Logout(c.Request.Context(), sess); err != nil {
			logrus.WithError(err).Error("Logout revocation failed")
		}
		flashRedirect(c, sessions, "info", "Logged out.", "/login")
	}
}
