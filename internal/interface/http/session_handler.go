package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListSessions(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized", "error_code": errCodeUnauthorized})
		return
	}

	sessions, err := s.manager.UserActiveSessions(c.Request.Context(), sess.UserID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error", "error_code": errCodeInternal})
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for _, item := range sessions {
		items = append(items, gin.H{
			"session_id":       item.ID,
			"current":          item.ID == sess.ID,
			"device_type":      item.Device.Type,
			"device_name":      item.Device.Name,
			"browser":          item.Device.Browser,
			"os":               item.Device.OS,
			"ip_address":       item.Network.IPAddress,
			"risk_level":       item.Security.RiskLevel,
			"is_suspicious":    item.Security.IsSuspicious,
			"created_at":       item.CreatedAt.Format(time.RFC3339),
			"last_accessed_at": item.LastAccessedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": items})
}

func (s *Server) handleLogoutOthers(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized", "error_code": errCodeUnauthorized})
		return
	}

	n, err := s.logoutOthersUC.Execute(c.Request.Context(), sess.UserID, sess.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error", "error_code": errCodeInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "revoked": n})
}
