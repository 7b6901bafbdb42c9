package session

import (
	"strings"
	"testing"
	"time"
)

func TestHashToken(t *testing.T) {
	h := HashToken("tok123")
	if len(h) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h))
	}
	if h != HashToken("tok123") {
		t.Error("hash must be deterministic")
	}
	if h == "tok123" {
		t.Error("hash must differ from plaintext")
	}
	if strings.ToLower(h) != h {
		t.Error("expected lowercase hex encoding")
	}
}

func TestSession_VerifyRefreshToken(t *testing.T) {
	var s Session
	s.SetRefreshToken("tok123")

	if !s.VerifyRefreshToken("tok123") {
		t.Error("expected exact plaintext to verify")
	}
	if s.VerifyRefreshToken("wrong") {
		t.Error("expected other plaintext to fail")
	}
	if s.VerifyRefreshToken("") {
		t.Error("expected empty plaintext to fail")
	}
	if s.RefreshTokenHash != HashToken("tok123") {
		t.Errorf("unexpected hash %s", s.RefreshTokenHash)
	}
}

func TestSession_Usability(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name        string
		sess        Session
		wantAccess  bool
		wantRefresh bool
	}{
		{
			name: "active and unexpired",
			sess: Session{
				Status:                StatusActive,
				AccessTokenExpiresAt:  now.Add(15 * time.Minute),
				RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
			},
			wantAccess:  true,
			wantRefresh: true,
		},
		{
			name: "access expired but still active",
			sess: Session{
				Status:                StatusActive,
				AccessTokenExpiresAt:  now.Add(-time.Second),
				RefreshTokenExpiresAt: now.Add(time.Hour),
			},
			wantAccess:  false,
			wantRefresh: true,
		},
		{
			name: "revoked",
			sess: Session{
				Status:                StatusRevoked,
				AccessTokenExpiresAt:  now.Add(time.Hour),
				RefreshTokenExpiresAt: now.Add(time.Hour),
			},
			wantAccess:  false,
			wantRefresh: false,
		},
		{
			name: "refresh expired",
			sess: Session{
				Status:                StatusActive,
				AccessTokenExpiresAt:  now.Add(time.Hour),
				RefreshTokenExpiresAt: now.Add(-time.Minute),
			},
			wantAccess:  true,
			wantRefresh: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.UsableForAccess(now); got != tt.wantAccess {
				t.Errorf("UsableForAccess() = %v, want %v", got, tt.wantAccess)
			}
			if got := tt.sess.UsableForRefresh(now); got != tt.wantRefresh {
				t.Errorf("UsableForRefresh() = %v, want %v", got, tt.wantRefresh)
			}
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusActive.Terminal() {
		t.Error("active is not terminal")
	}
	for _, st := range []Status{StatusExpired, StatusRevoked, StatusSuspended} {
		if !st.Terminal() {
			t.Errorf("%s should be terminal", st)
		}
	}
}

func TestSecurity_AddReasons(t *testing.T) {
	var sec Security
	sec.AddReasons(ReasonFailedAttempts, ReasonLocationChange, ReasonFailedAttempts, "")
	if len(sec.SuspiciousReasons) != 2 {
		t.Fatalf("expected dedup to 2 reasons, got %v", sec.SuspiciousReasons)
	}
	if !sec.HasReason(ReasonFailedAttempts) || !sec.HasReason(ReasonLocationChange) {
		t.Errorf("missing reason: %v", sec.SuspiciousReasons)
	}
}

func TestSecurity_RemoveReason(t *testing.T) {
	var sec Security
	sec.AddReasons(ReasonFailedAttempts, ReasonLocationChange)
	sec.RemoveReason(ReasonFailedAttempts)
	if sec.HasReason(ReasonFailedAttempts) {
		t.Error("failed_attempts should be removed")
	}
	if !sec.HasReason(ReasonLocationChange) {
		t.Error("other reasons must persist")
	}
}

func TestRiskForReasons(t *testing.T) {
	tests := []struct {
		count int
		want  RiskLevel
	}{
		{0, RiskLow},
		{1, RiskHigh},
		{2, RiskCritical},
		{5, RiskCritical},
	}
	for _, tt := range tests {
		if got := RiskForReasons(tt.count); got != tt.want {
			t.Errorf("RiskForReasons(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestRiskLevel_AtLeast(t *testing.T) {
	if got := RiskLow.AtLeast(RiskHigh); got != RiskHigh {
		t.Errorf("expected high, got %s", got)
	}
	if got := RiskCritical.AtLeast(RiskHigh); got != RiskCritical {
		t.Errorf("expected critical, got %s", got)
	}
}

func TestValidDeviceType(t *testing.T) {
	for _, d := range []DeviceType{DeviceMobile, DeviceTablet, DeviceDesktop, DeviceUnknown} {
		if !ValidDeviceType(d) {
			t.Errorf("%s should be valid", d)
		}
	}
	if ValidDeviceType("smartwatch") {
		t.Error("unexpected device type accepted")
	}
}
