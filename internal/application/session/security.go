package session

import (
	"context"
	"fmt"
	"log"

	sessionDomain "elearn-sessions/internal/domain/session"
)

const defaultSuspiciousThreshold = 3

// Alerter 將安全事件推送到外部通知管道。
type Alerter interface {
	SendMessage(ctx context.Context, text string) error
}

// Monitor 追蹤失敗次數與可疑事由並推導風險等級。
// 只改 security 欄位，不改 Status；升級為鎖定是呼叫端
// 透過 lifecycle Manager 另行決定的事。
type Monitor struct {
	store     sessionDomain.Store
	threshold int
	alerter   Alerter
}

// NewMonitor 建立 Monitor；threshold <= 0 時採預設值 3。
func NewMonitor(store sessionDomain.Store, threshold int) *Monitor {
	if threshold <= 0 {
		threshold = defaultSuspiciousThreshold
	}
	return &Monitor{store: store, threshold: threshold}
}

// SetAlerter 掛上通知管道；風險升到 critical 時推播，失敗只記 log。
func (m *Monitor) SetAlerter(a Alerter) {
	m.alerter = a
}

func (m *Monitor) alertCritical(ctx context.Context, sess *sessionDomain.Session) {
	if m.alerter == nil {
		return
	}
	text := fmt.Sprintf("session %s (user %s) escalated to critical risk: %v",
		sess.ID, sess.UserID, sess.Security.SuspiciousReasons)
	if err := m.alerter.SendMessage(ctx, text); err != nil {
		log.Printf("[Security] alert failed: %v", err)
	}
}

// IncrementLoginAttempts 失敗登入計數加一；達門檻即標記可疑、
// 併入 failed_attempts 事由（不重複），並將風險至少提升到 high。
func (m *Monitor) IncrementLoginAttempts(ctx context.Context, sess *sessionDomain.Session) error {
	sec := sess.Security
	sec.LoginAttempts++
	if sec.LoginAttempts >= m.threshold {
		sec.IsSuspicious = true
		sec.AddReasons(sessionDomain.ReasonFailedAttempts)
		sec.RiskLevel = sec.RiskLevel.AtLeast(sessionDomain.RiskHigh)
	}
	if err := m.store.UpdateSecurity(ctx, sess.ID, sec); err != nil {
		return fmt.Errorf("update security: %w", err)
	}
	sess.Security = sec
	return nil
}

// MarkSuspicious 將事由併入集合（去重）並依事由數重算風險等級。
func (m *Monitor) MarkSuspicious(ctx context.Context, sess *sessionDomain.Session, reasons ...string) error {
	prev := sess.Security.RiskLevel
	sec := sess.Security
	sec.AddReasons(reasons...)
	sec.IsSuspicious = true
	sec.RiskLevel = sessionDomain.RiskForReasons(len(sec.SuspiciousReasons))
	if err := m.store.UpdateSecurity(ctx, sess.ID, sec); err != nil {
		return fmt.Errorf("update security: %w", err)
	}
	sess.Security = sec
	if sec.RiskLevel == sessionDomain.RiskCritical && prev != sessionDomain.RiskCritical {
		m.alertCritical(ctx, sess)
	}
	return nil
}

// ResetLoginAttempts 清零計數並解除可疑標記，但只移除 failed_attempts 事由；
// 其他事由（如 location_change）獨立存在，失敗回復不等於安全放行。
func (m *Monitor) ResetLoginAttempts(ctx context.Context, sess *sessionDomain.Session) error {
	sec := sess.Security
	sec.LoginAttempts = 0
	sec.IsSuspicious = false
	sec.RiskLevel = sessionDomain.RiskLow
	sec.RemoveReason(sessionDomain.ReasonFailedAttempts)
	if err := m.store.UpdateSecurity(ctx, sess.ID, sec); err != nil {
		return fmt.Errorf("update security: %w", err)
	}
	sess.Security = sec
	return nil
}
