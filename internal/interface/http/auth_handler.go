package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	appauth "elearn-sessions/internal/application/auth"
	appsession "elearn-sessions/internal/application/session"
	sessionDomain "elearn-sessions/internal/domain/session"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	res, err := s.loginUC.Execute(c.Request.Context(), appauth.LoginInput{
		Email:    body.Email,
		Password: body.Password,
		Device:   parseDevice(c.GetHeader("User-Agent")),
		Network:  sessionDomain.Network{IPAddress: c.ClientIP()},
	})
	if err != nil {
		if errors.Is(err, appsession.ErrSessionLimit) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "too many active sessions", "error_code": errCodeSessionLimit})
			return
		}
		if sessionDomain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
			return
		}
		log.Printf("[Auth] login failure for %s: %v", body.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid email or password", "error_code": errCodeInvalidCredentials})
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":    res.User.ID,
			"email": res.User.Email,
			"name":  res.User.Name,
		},
		"session_id":   res.Session.ID,
		"access_token": res.Token.AccessToken,
		"token_type":   "Bearer",
		"expiry":       res.Token.AccessExpiry.Format(time.RFC3339),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "refresh token missing", "error_code": errCodeUnauthorized})
		return
	}

	res, err := s.refreshUC.Execute(c.Request.Context(), appauth.RefreshInput{
		RefreshToken: refreshToken,
		IPAddress:    c.ClientIP(),
	})
	if err != nil {
		if !errors.Is(err, appauth.ErrInvalidRefresh) {
			log.Printf("[Auth] refresh failure: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid refresh token", "error_code": errCodeUnauthorized})
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": res.Token.AccessToken,
		"token_type":   "Bearer",
		"expiry":       res.Token.AccessExpiry.Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)
	if refreshToken != "" {
		if err := s.logoutUC.Execute(c.Request.Context(), refreshToken); err != nil {
			log.Printf("[Auth] logout failure: %v", err)
		}
	}

	c.SetCookie(refreshCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleReauth(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	sess := sessionFromContext(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized", "error_code": errCodeUnauthorized})
		return
	}

	ok, err := s.reauthUC.Execute(c.Request.Context(), sess, body.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error", "error_code": errCodeInternal})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid password", "error_code": errCodeInvalidCredentials})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func sessionFromContext(c *gin.Context) *sessionDomain.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	sess, ok := v.(*sessionDomain.Session)
	if !ok {
		return nil
	}
	return sess
}
