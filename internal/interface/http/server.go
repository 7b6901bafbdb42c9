package httpapi

import (
	"database/sql"
	"net/http"
	"time"

	appauth "elearn-sessions/internal/application/auth"
	appsession "elearn-sessions/internal/application/session"
	sessionDomain "elearn-sessions/internal/domain/session"
	"elearn-sessions/internal/infra/memory"
	authinfra "elearn-sessions/internal/infrastructure/auth"
	"elearn-sessions/internal/infrastructure/config"
	"elearn-sessions/internal/infrastructure/notify"
	"elearn-sessions/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
)

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeSessionLimit       = "SESSION_LIMIT_REACHED"
	errCodeInternal           = "INTERNAL_ERROR"
	refreshCookieName         = "refresh_token"

	sessionContextKey = "session"
)

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	engine         *gin.Engine
	loginUC        *appauth.LoginUseCase
	refreshUC      *appauth.RefreshUseCase
	logoutUC       *appauth.LogoutUseCase
	logoutOthersUC *appauth.LogoutOthersUseCase
	reauthUC       *appauth.ReauthUseCase
	verifier       *appsession.Verifier
	manager        *appsession.Manager
	issuer         *authinfra.JWTIssuer
}

// NewServer 建立 API 伺服器；db 為 nil 時退回記憶體存儲（含預設帳號）。
func NewServer(cfg config.Config, db *sql.DB) *Server {
	var store sessionDomain.Store
	var users appauth.UserRepository
	if db != nil {
		store = postgres.NewSessionRepo(db)
		users = postgres.NewUserRepo(db)
	} else {
		memUsers := memory.NewUserStore()
		memUsers.SeedUsers()
		store = memory.NewSessionStore()
		users = memUsers
	}

	factory := appsession.NewFactory(store, cfg.Session.MaxSessionsPerUser, appsession.OverflowPolicy(cfg.Session.OverflowPolicy))
	verifier := appsession.NewVerifier(store)
	monitor := appsession.NewMonitor(store, cfg.Session.SuspiciousLoginThreshold)
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != 0 {
		monitor.SetAlerter(notify.NewTelegramClient(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.Notify.TelegramPrefix))
	}
	manager := appsession.NewManager(store)
	issuer := authinfra.NewJWTIssuer(cfg.Auth.Secret)
	hasher := authinfra.BcryptHasher{}

	s := &Server{
		loginUC:        appauth.NewLoginUseCase(users, hasher, factory, issuer, cfg.Session.AccessTTL, cfg.Session.RefreshTTL),
		refreshUC:      appauth.NewRefreshUseCase(verifier, manager, monitor, issuer, cfg.Session.AccessTTL, cfg.Session.RefreshTTL),
		logoutUC:       appauth.NewLogoutUseCase(verifier, manager),
		logoutOthersUC: appauth.NewLogoutOthersUseCase(manager),
		reauthUC:       appauth.NewReauthUseCase(users, hasher, monitor),
		verifier:       verifier,
		manager:        manager,
		issuer:         issuer,
	}
	s.engine = s.buildRouter()
	return s
}

// Manager 供外部（背景清理工作者）共用同一個 lifecycle Manager。
func (s *Server) Manager() *appsession.Manager {
	return s.manager
}

// Handler 回傳可掛載的 http.Handler。
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(s.ginLogger(), gin.Recovery(), corsMiddleware())

	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	api := engine.Group("/api")
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/refresh", s.handleRefresh)
	api.POST("/auth/logout", s.handleLogout)

	authorized := api.Group("")
	authorized.Use(s.requireSession())
	authorized.POST("/auth/reauth", s.handleReauth)
	authorized.GET("/sessions", s.handleListSessions)
	authorized.POST("/sessions/logout-others", s.handleLogoutOthers)

	return engine
}

func (s *Server) setRefreshCookie(c *gin.Context, token string, expiry time.Time) {
	maxAge := int(time.Until(expiry).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, token, maxAge, "/", "", false, true)
}
