package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"
)

// Verifier 回答「這個 token 現在還能不能用」。
// 查無或已過期一律回傳 (nil, nil)：在授權邊界上，
// 「沒有 session」與「token 無效」不可區分。
type Verifier struct {
	store sessionDomain.Store
	now   func() time.Time
}

// NewVerifier 建立 Verifier。
func NewVerifier(store sessionDomain.Store) *Verifier {
	return &Verifier{store: store, now: time.Now}
}

// FindByAccessToken 依 accessTokenID 解析 active session。
// 過期但仍為 active 的記錄視同不存在，過期是查詢條件而非錯誤。
func (v *Verifier) FindByAccessToken(ctx context.Context, accessTokenID string) (*sessionDomain.Session, error) {
	if accessTokenID == "" {
		return nil, nil
	}
	sess, err := v.store.FindActiveByAccessTokenID(ctx, accessTokenID)
	if err != nil {
		if errors.Is(err, sessionDomain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by access token: %w", err)
	}
	if !sess.UsableForAccess(v.now()) {
		return nil, nil
	}
	return &sess, nil
}

// FindByRefreshToken 以明文 token 的確定性雜湊做等值查詢解析 active session。
// 雜湊即索引鍵，O(1) 命中，不需逐筆比對。
func (v *Verifier) FindByRefreshToken(ctx context.Context, plain string) (*sessionDomain.Session, error) {
	if plain == "" {
		return nil, nil
	}
	sess, err := v.store.FindActiveByRefreshTokenHash(ctx, sessionDomain.HashToken(plain))
	if err != nil {
		if errors.Is(err, sessionDomain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by refresh token: %w", err)
	}
	if !sess.UsableForRefresh(v.now()) {
		return nil, nil
	}
	return &sess, nil
}

// VerifyRefreshToken 對已載入的 session 檢查明文 token 是否相符。
func (v *Verifier) VerifyRefreshToken(sess sessionDomain.Session, plain string) bool {
	return sess.VerifyRefreshToken(plain)
}

// Rotate 於 refresh 時輪替 token 材料：換新 accessTokenID、
// 以新明文重算 refreshTokenHash，並更新兩者效期。
// 舊 refresh token 值自此不再有效，不重複使用。
func (v *Verifier) Rotate(ctx context.Context, sess *sessionDomain.Session, newPlain, newAccessTokenID string, accessExp, refreshExp time.Time) error {
	if newPlain == "" {
		return &sessionDomain.ValidationError{Field: "refreshToken", Message: "required"}
	}
	if newAccessTokenID == "" {
		return &sessionDomain.ValidationError{Field: "accessTokenId", Message: "required"}
	}
	hash := sessionDomain.HashToken(newPlain)
	if err := v.store.RotateTokens(ctx, sess.ID, newAccessTokenID, hash, accessExp, refreshExp); err != nil {
		return fmt.Errorf("rotate tokens: %w", err)
	}
	sess.AccessTokenID = newAccessTokenID
	sess.RefreshTokenHash = hash
	sess.AccessTokenExpiresAt = accessExp
	sess.RefreshTokenExpiresAt = refreshExp
	return nil
}
