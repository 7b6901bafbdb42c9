package postgres

import (
	"context"
	"database/sql"

	"elearn-sessions/internal/domain/identity"
)

// UserRepo 提供身分協作者的唯讀存取；session 子系統不管理帳號。
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo 建立 UserRepo。
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByEmail 依 email 查詢使用者。
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	const q = `
SELECT id, email, display_name, password_hash, status
FROM users
WHERE email = $1
LIMIT 1;
`
	var u identity.User
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Status); err != nil {
		return identity.User{}, err
	}
	return u, nil
}

// FindByID 依 ID 查詢使用者。
func (r *UserRepo) FindByID(ctx context.Context, id string) (identity.User, error) {
	const q = `
SELECT id, email, display_name, password_hash, status
FROM users
WHERE id = $1
LIMIT 1;
`
	var u identity.User
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Status); err != nil {
		return identity.User{}, err
	}
	return u, nil
}
