package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound 表示查無符合條件的 session。
var ErrNotFound = errors.New("session not found")

// ErrDuplicateID 表示 sessionID 或 accessTokenID 與既有記錄衝突。
var ErrDuplicateID = errors.New("duplicate session identifier")

// ValidationError 表示建立 session 前的欄位驗證失敗。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation 檢查錯誤是否為欄位驗證失敗。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Store 為 session 持久層的抽象，所有狀態轉移以 compare-and-set
// 方式限定目前狀態為 active，避免 revoke 與 refresh 競爭時復活已退役的 session。
type Store interface {
	// Insert 寫入新 session；識別碼衝突時回傳 ErrDuplicateID。
	Insert(ctx context.Context, sess Session) error

	// FindByID 依 sessionID 查詢，不限狀態。
	FindByID(ctx context.Context, id string) (Session, error)

	// FindActiveByAccessTokenID 依 (accessTokenID, status=active) 查詢。
	FindActiveByAccessTokenID(ctx context.Context, accessTokenID string) (Session, error)

	// FindActiveByRefreshTokenHash 依 (refreshTokenHash, status=active) 等值查詢。
	FindActiveByRefreshTokenHash(ctx context.Context, hash string) (Session, error)

	// ListActiveByUser 回傳使用者的 active session，依 lastAccessedAt 由新至舊排序；
	// limit <= 0 表示不設上限。
	ListActiveByUser(ctx context.Context, userID string, limit int) ([]Session, error)

	// CountActiveByUser 回傳使用者目前 active session 數。
	CountActiveByUser(ctx context.Context, userID string) (int, error)

	// UpdateLastAccessed 更新最近存取時間，不動狀態。
	UpdateLastAccessed(ctx context.Context, id string, t time.Time) error

	// UpdateSecurity 覆寫 security 欄位群。
	UpdateSecurity(ctx context.Context, id string, sec Security) error

	// RotateTokens 替換 access token 識別碼與 refresh token 雜湊及兩者效期；
	// 僅在 status=active 時生效，否則回傳 ErrNotFound。
	RotateTokens(ctx context.Context, id, accessTokenID, refreshHash string, accessExp, refreshExp time.Time) error

	// MarkRevoked 以 CAS 將 active session 轉為 revoked 並寫入稽核註記；
	// 已非 active 時不生效（回傳 false），既有 revokedAt/notes 不被覆寫。
	MarkRevoked(ctx context.Context, id string, at time.Time, note string) (bool, error)

	// MarkSuspended 以 CAS 將 active session 轉為 suspended。
	MarkSuspended(ctx context.Context, id string, at time.Time, note string) (bool, error)

	// RevokeAllForUser 批次撤銷使用者全部 active session，excludeID 留存；
	// 回傳實際撤銷筆數。
	RevokeAllForUser(ctx context.Context, userID, excludeID string, at time.Time, note string) (int64, error)

	// ExpireRefreshDue 將 refresh token 已到期的 active session 批次轉為 expired；
	// revoked/suspended 不受影響。回傳筆數。
	ExpireRefreshDue(ctx context.Context, now time.Time) (int64, error)
}
