package api

import (
	"net/http"                         // HTTP status codes
	"stroke_registry/internal/session" // Session state

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/gorilla/csrf"    // CSRF hidden field
	"github.com/sirupsen/logrus" // Logging library
)

// render writes an HTML page with the shared layout data. Pending flashes
// are consumed here, so the session is saved before the body is written.
func render(c *gin.Context, sessions *session.Manager, status int, name, title string, data gin.H) {
	sess := session.FromContext(c)
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	data["flashes"] = sess.PopFlashes()
	data["csrfField"] = csrf.TemplateField(c.Request)
	if sess.Authenticated() {
		data["email"] = sess.Email
	}
	if err := sessions.Save(c, sess); err != nil {
		logrus.WithError(err).Error("save session")
	}
	c.HTML(status, name, data)
}

// redirect saves the session (carrying any new flashes) and sends a 302
func redirect(c *gin.Context, sessions *session.Manager, location string) {
	if err := sessions.Save(c, session.FromContext(c)); err != nil {
		logrus.WithError(err).Error("save session")
	}
	c.Redirect(http.StatusFound, location)
}

// flashRedirect adds a notice and redirects
func flashRedirect(c *gin.Context, sessions *session.Manager, category, message, location string) {
	session.FromContext(c).AddFlash(category, message)
	redirect(c, sessions, location)
}

// serverError logs an unexpected failure and renders a generic error page
func serverError(c *gin.Context, sessions *session.Manager, err error, msg string) {
	_ = c.Error(err)
	logrus.WithFields(logrus.Fields{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}).Error(msg)
	render(c, sessions, http.StatusInternalServerError, "error.html", "Error", gin.H{
		"message": "Something went wrong. Please try again.",
	})
}
