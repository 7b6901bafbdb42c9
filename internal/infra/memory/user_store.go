package memory

import (
	"context"
	"fmt"
	"sync"

	"elearn-sessions/internal/domain/identity"
	authinfra "elearn-sessions/internal/infrastructure/auth"
)

// UserStore 為身分協作者的記憶體實作，供無資料庫模式登入測試。
type UserStore struct {
	mu    sync.RWMutex
	users map[string]identity.User
	idSeq int64
}

// NewUserStore 建立空的記憶體 user store。
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]identity.User)}
}

// SeedUsers 建立預設帳號供登入測試。
func (s *UserStore) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return p
		}
		return h
	}
	s.AddUser("teacher@example.com", hash("password123"), "Teacher")
	s.AddUser("student@example.com", hash("password123"), "Student")
}

// AddUser 新增帳號並回傳配發的 ID。
func (s *UserStore) AddUser(email, passwordHash, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idSeq++
	id := fmt.Sprintf("u-%d", s.idSeq)
	s.users[id] = identity.User{
		ID:       id,
		Email:    email,
		Name:     name,
		Status:   identity.StatusActive,
		Password: passwordHash,
	}
	return id
}

// FindByEmail 依 email 查詢使用者。
func (s *UserStore) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return identity.User{}, fmt.Errorf("user not found")
}

// FindByID 依 ID 查詢使用者。
func (s *UserStore) FindByID(ctx context.Context, id string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return identity.User{}, fmt.Errorf("user not found")
	}
	return u, nil
}
