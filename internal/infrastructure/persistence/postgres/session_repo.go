package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SessionRepo 以 PostgreSQL 實作 session store port。
// 記錄不做實體刪除，退役僅改 status。
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo 建立 SessionRepo。
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, user_id, access_token_id, refresh_token_hash, status,
device_type, device_name, browser, os,
ip_address, country, city,
risk_level, is_suspicious, suspicious_reasons, login_attempts, notes,
created_at, last_accessed_at, access_expires_at, refresh_expires_at, revoked_at`

// Insert 寫入新 session；唯一鍵衝突映射為 ErrDuplicateID。
func (r *SessionRepo) Insert(ctx context.Context, sess sessionDomain.Session) error {
	const q = `
INSERT INTO auth_sessions (` + sessionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
`
	var revokedAt sql.NullTime
	if sess.RevokedAt != nil {
		revokedAt = sql.NullTime{Time: *sess.RevokedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		sess.ID, sess.UserID, sess.AccessTokenID, sess.RefreshTokenHash, string(sess.Status),
		string(sess.Device.Type), sess.Device.Name, sess.Device.Browser, sess.Device.OS,
		sess.Network.IPAddress, sess.Network.Country, sess.Network.City,
		string(sess.Security.RiskLevel), sess.Security.IsSuspicious, pq.Array(sess.Security.SuspiciousReasons), sess.Security.LoginAttempts, sess.Metadata.Notes,
		sess.CreatedAt, sess.LastAccessedAt, sess.AccessTokenExpiresAt, sess.RefreshTokenExpiresAt, revokedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sessionDomain.ErrDuplicateID
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindByID 依 sessionID 查詢，不限狀態。
func (r *SessionRepo) FindByID(ctx context.Context, id string) (sessionDomain.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM auth_sessions
WHERE id = $1;
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// FindActiveByAccessTokenID 依 (accessTokenID, status=active) 查詢。
func (r *SessionRepo) FindActiveByAccessTokenID(ctx context.Context, accessTokenID string) (sessionDomain.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM auth_sessions
WHERE access_token_id = $1 AND status = 'active';
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, accessTokenID))
}

// FindActiveByRefreshTokenHash 依雜湊做索引等值查詢，不掃表。
func (r *SessionRepo) FindActiveByRefreshTokenHash(ctx context.Context, hash string) (sessionDomain.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM auth_sessions
WHERE refresh_token_hash = $1 AND status = 'active';
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, hash))
}

// ListActiveByUser 回傳使用者 active session，lastAccessedAt 由新至舊。
func (r *SessionRepo) ListActiveByUser(ctx context.Context, userID string, limit int) ([]sessionDomain.Session, error) {
	q := `
SELECT ` + sessionColumns + `
FROM auth_sessions
WHERE user_id = $1 AND status = 'active'
ORDER BY last_accessed_at DESC
`
	args := []interface{}{userID}
	if limit > 0 {
		q += "LIMIT $2\n"
		args = append(args, limit)
	}
	q += ";"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []sessionDomain.Session
	for rows.Next() {
		sess, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// CountActiveByUser 回傳使用者目前 active session 數。
func (r *SessionRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const q = `
SELECT COUNT(*) FROM auth_sessions WHERE user_id = $1 AND status = 'active';
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// UpdateLastAccessed 更新最近存取時間。
func (r *SessionRepo) UpdateLastAccessed(ctx context.Context, id string, t time.Time) error {
	const q = `
UPDATE auth_sessions SET last_accessed_at = $2 WHERE id = $1;
`
	if _, err := r.db.ExecContext(ctx, q, id, t); err != nil {
		return fmt.Errorf("update last accessed: %w", err)
	}
	return nil
}

// UpdateSecurity 覆寫 security 欄位群。
func (r *SessionRepo) UpdateSecurity(ctx context.Context, id string, sec sessionDomain.Security) error {
	const q = `
UPDATE auth_sessions
SET risk_level = $2, is_suspicious = $3, suspicious_reasons = $4, login_attempts = $5
WHERE id = $1;
`
	if _, err := r.db.ExecContext(ctx, q, id, string(sec.RiskLevel), sec.IsSuspicious, pq.Array(sec.SuspiciousReasons), sec.LoginAttempts); err != nil {
		return fmt.Errorf("update security: %w", err)
	}
	return nil
}

// RotateTokens 替換 token 材料與效期，限定 status=active。
func (r *SessionRepo) RotateTokens(ctx context.Context, id, accessTokenID, refreshHash string, accessExp, refreshExp time.Time) error {
	const q = `
UPDATE auth_sessions
SET access_token_id = $2, refresh_token_hash = $3, access_expires_at = $4, refresh_expires_at = $5
WHERE id = $1 AND status = 'active';
`
	res, err := r.db.ExecContext(ctx, q, id, accessTokenID, refreshHash, accessExp, refreshExp)
	if err != nil {
		return fmt.Errorf("rotate tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate tokens: %w", err)
	}
	if n == 0 {
		return sessionDomain.ErrNotFound
	}
	return nil
}

// MarkRevoked 以 CAS 撤銷：僅 active 可轉移，首次的 revoked_at/notes 不被覆寫。
func (r *SessionRepo) MarkRevoked(ctx context.Context, id string, at time.Time, note string) (bool, error) {
	const q = `
UPDATE auth_sessions
SET status = 'revoked', revoked_at = $2, notes = $3
WHERE id = $1 AND status = 'active';
`
	res, err := r.db.ExecContext(ctx, q, id, at, note)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return n > 0, nil
}

// MarkSuspended 以 CAS 將 active session 轉為 suspended。
func (r *SessionRepo) MarkSuspended(ctx context.Context, id string, at time.Time, note string) (bool, error) {
	const q = `
UPDATE auth_sessions
SET status = 'suspended', notes = $2
WHERE id = $1 AND status = 'active';
`
	res, err := r.db.ExecContext(ctx, q, id, note)
	if err != nil {
		return false, fmt.Errorf("suspend session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("suspend session: %w", err)
	}
	return n > 0, nil
}

// RevokeAllForUser 批次撤銷使用者 active session，excludeID 留存。
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID, excludeID string, at time.Time, note string) (int64, error) {
	const q = `
UPDATE auth_sessions
SET status = 'revoked', revoked_at = $3, notes = $4
WHERE user_id = $1 AND status = 'active' AND id <> $2;
`
	res, err := r.db.ExecContext(ctx, q, userID, excludeID, at, note)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return n, nil
}

// ExpireRefreshDue 批次將 refresh 到期的 active session 轉為 expired；
// revoked/suspended 不在條件內。
func (r *SessionRepo) ExpireRefreshDue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
UPDATE auth_sessions
SET status = 'expired'
WHERE status = 'active' AND refresh_expires_at <= $1;
`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SessionRepo) scanOne(row rowScanner) (sessionDomain.Session, error) {
	var (
		sess      sessionDomain.Session
		status    string
		devType   string
		risk      string
		reasons   pq.StringArray
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.AccessTokenID, &sess.RefreshTokenHash, &status,
		&devType, &sess.Device.Name, &sess.Device.Browser, &sess.Device.OS,
		&sess.Network.IPAddress, &sess.Network.Country, &sess.Network.City,
		&risk, &sess.Security.IsSuspicious, &reasons, &sess.Security.LoginAttempts, &sess.Metadata.Notes,
		&sess.CreatedAt, &sess.LastAccessedAt, &sess.AccessTokenExpiresAt, &sess.RefreshTokenExpiresAt, &revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessionDomain.Session{}, sessionDomain.ErrNotFound
		}
		return sessionDomain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = sessionDomain.Status(status)
	sess.Device.Type = sessionDomain.DeviceType(devType)
	sess.Security.RiskLevel = sessionDomain.RiskLevel(risk)
	sess.Security.SuspiciousReasons = []string(reasons)
	if revokedAt.Valid {
		t := revokedAt.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
