package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appsession "elearn-sessions/internal/application/session"
	"elearn-sessions/internal/domain/identity"
	sessionDomain "elearn-sessions/internal/domain/session"
	authinfra "elearn-sessions/internal/infrastructure/auth"

	"github.com/google/uuid"
)

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// PasswordHasher 驗證密碼。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
}

// AccessTokenIssuer 簽發 access token。
type AccessTokenIssuer interface {
	IssueAccess(userID, accessTokenID string, expiresAt time.Time) (string, error)
}

// ErrInvalidRefresh 表示 refresh token 無效、過期或查無 session。
// 對呼叫端刻意不再細分，避免洩漏是哪一種情況。
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenPair 封裝 access/refresh token。
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// LoginUseCase 驗證帳密、開立 session 並簽發 token。
type LoginUseCase struct {
	users      UserRepository
	hasher     PasswordHasher
	factory    *appsession.Factory
	issuer     AccessTokenIssuer
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	newRefresh func() (string, error)
}

// NewLoginUseCase 建立登入 use case。
func NewLoginUseCase(users UserRepository, hasher PasswordHasher, factory *appsession.Factory, issuer AccessTokenIssuer, accessTTL, refreshTTL time.Duration) *LoginUseCase {
	return &LoginUseCase{
		users:      users,
		hasher:     hasher,
		factory:    factory,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		newRefresh: authinfra.NewRefreshToken,
	}
}

// LoginInput 的 Device/Network 由 HTTP 層自請求標頭解析後帶入。
type LoginInput struct {
	Email    string
	Password string
	Device   sessionDomain.Device
	Network  sessionDomain.Network
}

type LoginResult struct {
	User    identity.User
	Session sessionDomain.Session
	Token   TokenPair
}

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return out, errors.New("email and password required")
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return out, errors.New("user disabled or locked")
	}
	if !uc.hasher.Compare(user.Password, input.Password) {
		return out, errors.New("invalid credentials")
	}

	refreshPlain, err := uc.newRefresh()
	if err != nil {
		return out, fmt.Errorf("generate refresh token: %w", err)
	}

	now := uc.now()
	sess, err := uc.factory.Create(ctx, appsession.CreateInput{
		UserID:                user.ID,
		Device:                input.Device,
		Network:               input.Network,
		RefreshToken:          refreshPlain,
		AccessTokenExpiresAt:  now.Add(uc.accessTTL),
		RefreshTokenExpiresAt: now.Add(uc.refreshTTL),
	})
	if err != nil {
		return out, fmt.Errorf("create session: %w", err)
	}

	access, err := uc.issuer.IssueAccess(user.ID, sess.AccessTokenID, sess.AccessTokenExpiresAt)
	if err != nil {
		return out, fmt.Errorf("issue access token: %w", err)
	}

	out.User = user
	out.Session = sess
	out.Token = TokenPair{
		AccessToken:   access,
		RefreshToken:  refreshPlain,
		AccessExpiry:  sess.AccessTokenExpiresAt,
		RefreshExpiry: sess.RefreshTokenExpiresAt,
	}
	return out, nil
}

// RefreshUseCase 以 refresh token 換發新的 token 對，一律輪替：
// 舊 refresh token 值作廢，accessTokenID 一併換新。
type RefreshUseCase struct {
	verifier   *appsession.Verifier
	manager    *appsession.Manager
	monitor    *appsession.Monitor
	issuer     AccessTokenIssuer
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	newRefresh func() (string, error)
	newID      func() string
}

// NewRefreshUseCase 建立 refresh use case。
func NewRefreshUseCase(verifier *appsession.Verifier, manager *appsession.Manager, monitor *appsession.Monitor, issuer AccessTokenIssuer, accessTTL, refreshTTL time.Duration) *RefreshUseCase {
	return &RefreshUseCase{
		verifier:   verifier,
		manager:    manager,
		monitor:    monitor,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		newRefresh: authinfra.NewRefreshToken,
		newID:      uuid.NewString,
	}
}

type RefreshInput struct {
	RefreshToken string
	IPAddress    string // 本次請求來源，僅作安全訊號
}

type RefreshResult struct {
	Session sessionDomain.Session
	Token   TokenPair
}

func (uc *RefreshUseCase) Execute(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	var out RefreshResult
	sess, err := uc.verifier.FindByRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		return out, fmt.Errorf("resolve refresh token: %w", err)
	}
	if sess == nil {
		return out, ErrInvalidRefresh
	}

	// 來源位址與開立時不同：只記訊號，不擋請求。
	if input.IPAddress != "" && input.IPAddress != sess.Network.IPAddress {
		if err := uc.monitor.MarkSuspicious(ctx, sess, sessionDomain.ReasonLocationChange); err != nil {
			return out, fmt.Errorf("mark suspicious: %w", err)
		}
	}

	refreshPlain, err := uc.newRefresh()
	if err != nil {
		return out, fmt.Errorf("generate refresh token: %w", err)
	}

	now := uc.now()
	if err := uc.verifier.Rotate(ctx, sess, refreshPlain, uc.newID(), now.Add(uc.accessTTL), now.Add(uc.refreshTTL)); err != nil {
		return out, fmt.Errorf("rotate session: %w", err)
	}
	if err := uc.manager.UpdateAccess(ctx, sess); err != nil {
		return out, fmt.Errorf("update access: %w", err)
	}

	access, err := uc.issuer.IssueAccess(sess.UserID, sess.AccessTokenID, sess.AccessTokenExpiresAt)
	if err != nil {
		return out, fmt.Errorf("issue access token: %w", err)
	}

	out.Session = *sess
	out.Token = TokenPair{
		AccessToken:   access,
		RefreshToken:  refreshPlain,
		AccessExpiry:  sess.AccessTokenExpiresAt,
		RefreshExpiry: sess.RefreshTokenExpiresAt,
	}
	return out, nil
}

// LogoutUseCase 撤銷 refresh token 對應的 session。
type LogoutUseCase struct {
	verifier *appsession.Verifier
	manager  *appsession.Manager
}

// NewLogoutUseCase 建立登出 use case。
func NewLogoutUseCase(verifier *appsession.Verifier, manager *appsession.Manager) *LogoutUseCase {
	return &LogoutUseCase{verifier: verifier, manager: manager}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, refreshToken string) error {
	sess, err := uc.verifier.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("resolve refresh token: %w", err)
	}
	if sess == nil {
		// 已失效的 token 登出視為成功
		return nil
	}
	return uc.manager.Revoke(ctx, sess, "logout")
}

// LogoutOthersUseCase 撤銷使用者其他裝置的全部 active session。
type LogoutOthersUseCase struct {
	manager *appsession.Manager
}

// NewLogoutOthersUseCase 建立「登出其他裝置」use case。
func NewLogoutOthersUseCase(manager *appsession.Manager) *LogoutOthersUseCase {
	return &LogoutOthersUseCase{manager: manager}
}

func (uc *LogoutOthersUseCase) Execute(ctx context.Context, userID, keepSessionID string) (int64, error) {
	return uc.manager.RevokeAllUserSessions(ctx, userID, keepSessionID, "logout all devices")
}

// ReauthUseCase 供敏感操作前的重新驗證：失敗計入 session 的
// 失敗次數，成功則清零。
type ReauthUseCase struct {
	users   UserRepository
	hasher  PasswordHasher
	monitor *appsession.Monitor
}

// NewReauthUseCase 建立重新驗證 use case。
func NewReauthUseCase(users UserRepository, hasher PasswordHasher, monitor *appsession.Monitor) *ReauthUseCase {
	return &ReauthUseCase{users: users, hasher: hasher, monitor: monitor}
}

func (uc *ReauthUseCase) Execute(ctx context.Context, sess *sessionDomain.Session, password string) (bool, error) {
	user, err := uc.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	if !uc.hasher.Compare(user.Password, password) {
		if err := uc.monitor.IncrementLoginAttempts(ctx, sess); err != nil {
			return false, fmt.Errorf("record failed attempt: %w", err)
		}
		return false, nil
	}
	if err := uc.monitor.ResetLoginAttempts(ctx, sess); err != nil {
		return false, fmt.Errorf("reset attempts: %w", err)
	}
	return true, nil
}
