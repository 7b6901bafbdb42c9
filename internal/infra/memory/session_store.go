package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"
)

// SessionStore 為 session port 的記憶體實作，
// 供無資料庫模式與單元測試使用。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionDomain.Session // id -> record
	byAccess map[string]string                // accessTokenID -> id
}

// NewSessionStore 建立空的記憶體 session store。
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]sessionDomain.Session),
		byAccess: make(map[string]string),
	}
}

// Insert 寫入新 session；id 或 accessTokenID 重複時回傳 ErrDuplicateID。
func (s *SessionStore) Insert(ctx context.Context, sess sessionDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return sessionDomain.ErrDuplicateID
	}
	if _, ok := s.byAccess[sess.AccessTokenID]; ok {
		return sessionDomain.ErrDuplicateID
	}
	s.sessions[sess.ID] = cloneSession(sess)
	s.byAccess[sess.AccessTokenID] = sess.ID
	return nil
}

// FindByID 依 sessionID 查詢，不限狀態。
func (s *SessionStore) FindByID(ctx context.Context, id string) (sessionDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sessionDomain.Session{}, sessionDomain.ErrNotFound
	}
	return cloneSession(sess), nil
}

// FindActiveByAccessTokenID 依 (accessTokenID, status=active) 查詢。
func (s *SessionStore) FindActiveByAccessTokenID(ctx context.Context, accessTokenID string) (sessionDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAccess[accessTokenID]
	if !ok {
		return sessionDomain.Session{}, sessionDomain.ErrNotFound
	}
	sess := s.sessions[id]
	if sess.Status != sessionDomain.StatusActive || sess.AccessTokenID != accessTokenID {
		return sessionDomain.Session{}, sessionDomain.ErrNotFound
	}
	return cloneSession(sess), nil
}

// FindActiveByRefreshTokenHash 依 (refreshTokenHash, status=active) 等值查詢。
func (s *SessionStore) FindActiveByRefreshTokenHash(ctx context.Context, hash string) (sessionDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Status == sessionDomain.StatusActive && sess.RefreshTokenHash == hash {
			return cloneSession(sess), nil
		}
	}
	return sessionDomain.Session{}, sessionDomain.ErrNotFound
}

// ListActiveByUser 回傳使用者 active session，lastAccessedAt 由新至舊。
func (s *SessionStore) ListActiveByUser(ctx context.Context, userID string, limit int) ([]sessionDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sessionDomain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == sessionDomain.StatusActive {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessedAt.After(out[j].LastAccessedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountActiveByUser 回傳使用者目前 active session 數。
func (s *SessionStore) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == sessionDomain.StatusActive {
			count++
		}
	}
	return count, nil
}

// UpdateLastAccessed 更新最近存取時間。
func (s *SessionStore) UpdateLastAccessed(ctx context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sessionDomain.ErrNotFound
	}
	sess.LastAccessedAt = t
	s.sessions[id] = sess
	return nil
}

// UpdateSecurity 覆寫 security 欄位群。
func (s *SessionStore) UpdateSecurity(ctx context.Context, id string, sec sessionDomain.Security) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sessionDomain.ErrNotFound
	}
	sec.SuspiciousReasons = append([]string(nil), sec.SuspiciousReasons...)
	sess.Security = sec
	s.sessions[id] = sess
	return nil
}

// RotateTokens 替換 token 材料與效期，僅在 active 狀態下生效。
func (s *SessionStore) RotateTokens(ctx context.Context, id, accessTokenID, refreshHash string, accessExp, refreshExp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != sessionDomain.StatusActive {
		return sessionDomain.ErrNotFound
	}
	delete(s.byAccess, sess.AccessTokenID)
	sess.AccessTokenID = accessTokenID
	sess.RefreshTokenHash = refreshHash
	sess.AccessTokenExpiresAt = accessExp
	sess.RefreshTokenExpiresAt = refreshExp
	s.sessions[id] = sess
	s.byAccess[accessTokenID] = id
	return nil
}

// MarkRevoked 以 CAS 轉為 revoked；非 active 時不動原記錄。
func (s *SessionStore) MarkRevoked(ctx context.Context, id string, at time.Time, note string) (bool, error) {
	return s.markTerminal(id, sessionDomain.StatusRevoked, at, note)
}

// MarkSuspended 以 CAS 轉為 suspended。
func (s *SessionStore) MarkSuspended(ctx context.Context, id string, at time.Time, note string) (bool, error) {
	return s.markTerminal(id, sessionDomain.StatusSuspended, at, note)
}

func (s *SessionStore) markTerminal(id string, status sessionDomain.Status, at time.Time, note string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, sessionDomain.ErrNotFound
	}
	if sess.Status != sessionDomain.StatusActive {
		return false, nil
	}
	sess.Status = status
	sess.Metadata.Notes = note
	if status == sessionDomain.StatusRevoked {
		revokedAt := at
		sess.RevokedAt = &revokedAt
	}
	s.sessions[id] = sess
	return true, nil
}

// RevokeAllForUser 批次撤銷使用者 active session，excludeID 留存。
func (s *SessionStore) RevokeAllForUser(ctx context.Context, userID, excludeID string, at time.Time, note string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.UserID != userID || sess.Status != sessionDomain.StatusActive || id == excludeID {
			continue
		}
		sess.Status = sessionDomain.StatusRevoked
		revokedAt := at
		sess.RevokedAt = &revokedAt
		sess.Metadata.Notes = note
		s.sessions[id] = sess
		n++
	}
	return n, nil
}

// ExpireRefreshDue 將 refresh token 到期的 active session 批次轉為 expired。
func (s *SessionStore) ExpireRefreshDue(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.Status != sessionDomain.StatusActive {
			continue
		}
		if sess.RefreshTokenExpiresAt.After(now) {
			continue
		}
		sess.Status = sessionDomain.StatusExpired
		s.sessions[id] = sess
		n++
	}
	return n, nil
}

func cloneSession(sess sessionDomain.Session) sessionDomain.Session {
	out := sess
	out.Security.SuspiciousReasons = append([]string(nil), sess.Security.SuspiciousReasons...)
	if sess.RevokedAt != nil {
		revokedAt := *sess.RevokedAt
		out.RevokedAt = &revokedAt
	}
	return out
}
