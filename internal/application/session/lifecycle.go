package session

import (
	"context"
	"fmt"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"
)

// Manager 執行 session 狀態轉移與批次清理。
// 所有轉移單向：active → {revoked, expired, suspended}，終止態不回頭。
type Manager struct {
	store sessionDomain.Store
	now   func() time.Time
}

// NewManager 建立 Manager。
func NewManager(store sessionDomain.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// UpdateAccess 更新最近存取時間；每次授權成功的請求都會呼叫，不動狀態。
func (m *Manager) UpdateAccess(ctx context.Context, sess *sessionDomain.Session) error {
	now := m.now()
	if err := m.store.UpdateLastAccessed(ctx, sess.ID, now); err != nil {
		return fmt.Errorf("update last accessed: %w", err)
	}
	sess.LastAccessedAt = now
	return nil
}

// Revoke 撤銷 session 並以 reason 寫入稽核註記。
// 效果冪等：已撤銷者維持撤銷，第一次的 revokedAt 與註記不被覆寫。
func (m *Manager) Revoke(ctx context.Context, sess *sessionDomain.Session, reason string) error {
	now := m.now()
	applied, err := m.store.MarkRevoked(ctx, sess.ID, now, reason)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if applied {
		sess.Status = sessionDomain.StatusRevoked
		sess.RevokedAt = &now
		sess.Metadata.Notes = reason
	}
	return nil
}

// Suspend 將 session 明確轉為 suspended。風險達 critical 不會自動觸發，
// 是否停用由呼叫端決定後在此執行。
func (m *Manager) Suspend(ctx context.Context, sess *sessionDomain.Session, reason string) error {
	now := m.now()
	applied, err := m.store.MarkSuspended(ctx, sess.ID, now, reason)
	if err != nil {
		return fmt.Errorf("suspend session: %w", err)
	}
	if applied {
		sess.Status = sessionDomain.StatusSuspended
		sess.Metadata.Notes = reason
	}
	return nil
}

// UserActiveSessions 回傳使用者的 active session，
// 依 lastAccessedAt 由新至舊排序，最多 limit 筆。
func (m *Manager) UserActiveSessions(ctx context.Context, userID string, limit int) ([]sessionDomain.Session, error) {
	sessions, err := m.store.ListActiveByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// RevokeAllUserSessions 批次撤銷使用者全部 active session，
// excludeID 指定的留存（「登出其他裝置」）。回傳撤銷筆數。
func (m *Manager) RevokeAllUserSessions(ctx context.Context, userID, excludeID, reason string) (int64, error) {
	n, err := m.store.RevokeAllForUser(ctx, userID, excludeID, m.now(), reason)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return n, nil
}

// CleanupExpired 掃描 refresh token 已到期的 active session 並轉為 expired。
// revoked/suspended 不受影響；設計給固定間隔的批次清理呼叫。
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.store.ExpireRefreshDue(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return n, nil
}
