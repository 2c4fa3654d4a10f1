package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edusentry/proctor_backend_v1/internal/models"
	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
)

// StudentHandler upgrades the exam client's reporting channel. The client
// must own an existing session; its id is passed as the session_id query
// parameter.
func StudentHandler(hubs *Hubs, engine *proctoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Student == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
			return
		}
		uVal, ok := c.Get("user")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		user := uVal.(models.User)
		if strings.ToLower(user.Role) != "student" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		sessionID := c.Query("session_id")
		snap, err := engine.GetSession(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if snap.StudentID != user.UserID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not your session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newStudentClient(hubs.Student, conn, user.UserID, sessionID, engine)
		hubs.Student.register <- client

		go client.writePump()
		client.readPump()
	}
}
