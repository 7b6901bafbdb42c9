package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"

	"github.com/google/uuid"
)

// OverflowPolicy 定義超過每人 session 上限時的處置。
type OverflowPolicy string

const (
	// PolicyEvictOldest 撤銷最久未存取的 active session 以騰出名額。
	PolicyEvictOldest OverflowPolicy = "evict_oldest"
	// PolicyReject 拒絕新登入。
	PolicyReject OverflowPolicy = "reject"
)

// ErrSessionLimit 表示使用者 active session 已達上限且政策為拒絕。
var ErrSessionLimit = errors.New("active session limit reached")

const (
	defaultMaxSessions = 5
	insertAttempts     = 3

	evictionNote = "evicted: session limit reached"
)

// CreateInput 列舉建立 session 時認得的所有欄位。
type CreateInput struct {
	UserID                string
	Device                sessionDomain.Device
	Network               sessionDomain.Network
	RefreshToken          string // 明文，僅用於計算雜湊，不落地
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

// Factory 負責組裝並持久化新 session 記錄。
type Factory struct {
	store       sessionDomain.Store
	maxSessions int
	policy      OverflowPolicy
	now         func() time.Time
	newID       func() string
}

// NewFactory 建立 Factory；maxSessions <= 0 時採預設上限。
func NewFactory(store sessionDomain.Store, maxSessions int, policy OverflowPolicy) *Factory {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if policy == "" {
		policy = PolicyEvictOldest
	}
	return &Factory{
		store:       store,
		maxSessions: maxSessions,
		policy:      policy,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Create 驗證輸入、套用人均上限政策後寫入新 session。
// 回傳完整記錄（含衍生欄位），但不回傳明文 refresh token。
func (f *Factory) Create(ctx context.Context, input CreateInput) (sessionDomain.Session, error) {
	now := f.now()
	if err := validateCreateInput(input, now); err != nil {
		return sessionDomain.Session{}, err
	}

	if err := f.applySessionCap(ctx, input.UserID, now); err != nil {
		return sessionDomain.Session{}, err
	}

	sess := sessionDomain.Session{
		UserID:           input.UserID,
		RefreshTokenHash: sessionDomain.HashToken(input.RefreshToken),
		Status:           sessionDomain.StatusActive,
		Device:           input.Device,
		Network:          input.Network,
		Security: sessionDomain.Security{
			RiskLevel:     sessionDomain.RiskLow,
			LoginAttempts: 0,
		},
		CreatedAt:             now,
		LastAccessedAt:        now,
		AccessTokenExpiresAt:  input.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: input.RefreshTokenExpiresAt,
	}

	// 識別碼衝突屬 store 層錯誤，重新產生後重試，次數有限。
	var lastErr error
	for i := 0; i < insertAttempts; i++ {
		sess.ID = f.newID()
		sess.AccessTokenID = f.newID()
		if err := f.store.Insert(ctx, sess); err != nil {
			if errors.Is(err, sessionDomain.ErrDuplicateID) {
				lastErr = err
				continue
			}
			return sessionDomain.Session{}, fmt.Errorf("insert session: %w", err)
		}
		return sess, nil
	}
	return sessionDomain.Session{}, fmt.Errorf("insert session after %d attempts: %w", insertAttempts, lastErr)
}

// applySessionCap 為 check-then-act，同帳號並發登入下僅屬盡力而為的上限。
func (f *Factory) applySessionCap(ctx context.Context, userID string, now time.Time) error {
	count, err := f.store.CountActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count active sessions: %w", err)
	}
	if count < f.maxSessions {
		return nil
	}
	if f.policy == PolicyReject {
		return ErrSessionLimit
	}

	active, err := f.store.ListActiveByUser(ctx, userID, 0)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	// 排序為由新至舊，尾端即最久未存取者。
	excess := len(active) - f.maxSessions + 1
	for i := 0; i < excess; i++ {
		victim := active[len(active)-1-i]
		if _, err := f.store.MarkRevoked(ctx, victim.ID, now, evictionNote); err != nil {
			return fmt.Errorf("evict session %s: %w", victim.ID, err)
		}
	}
	return nil
}

func validateCreateInput(input CreateInput, now time.Time) error {
	if input.UserID == "" {
		return &sessionDomain.ValidationError{Field: "userId", Message: "required"}
	}
	if input.RefreshToken == "" {
		return &sessionDomain.ValidationError{Field: "refreshToken", Message: "required"}
	}
	if input.AccessTokenExpiresAt.IsZero() {
		return &sessionDomain.ValidationError{Field: "accessTokenExpiresAt", Message: "required"}
	}
	if input.RefreshTokenExpiresAt.IsZero() {
		return &sessionDomain.ValidationError{Field: "refreshTokenExpiresAt", Message: "required"}
	}
	if !input.AccessTokenExpiresAt.After(now) {
		return &sessionDomain.ValidationError{Field: "accessTokenExpiresAt", Message: "must be in the future"}
	}
	if !input.RefreshTokenExpiresAt.After(now) {
		return &sessionDomain.ValidationError{Field: "refreshTokenExpiresAt", Message: "must be in the future"}
	}
	if net.ParseIP(input.Network.IPAddress) == nil {
		return &sessionDomain.ValidationError{Field: "network.ipAddress", Message: "malformed ip address"}
	}
	if !sessionDomain.ValidDeviceType(input.Device.Type) {
		return &sessionDomain.ValidationError{Field: "device.type", Message: "unknown device type"}
	}
	return nil
}
