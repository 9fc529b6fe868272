package middleware

import (
	"net/http"                         // HTTP status codes
	"stroke_registry/internal/service" // Auth guard
	"stroke_registry/internal/session" // Session state

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RequireLogin guards protected routes. Anonymous requests are sent to /login
// with a notice; authenticated ones get userID and email in the context.
func RequireLogin(auth *service.AuthService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		identity, err := auth.RequireSession(sess)
		if err != nil {
			sess.AddFlash("warning", "Please log in first.")
			if err := sessions.Save(c, sess); err != nil {
				logrus.WithError(err).Error("save session")
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set("userID", identity.UserID) // Store userID in context
		c.Set("email", identity.Email)
		c.Next() // Proceed to the next handler
	}
}
