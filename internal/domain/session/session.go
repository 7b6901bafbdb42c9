package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Status 定義 session 生命週期狀態；active 以外皆為終止態。
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
)

// Terminal 檢查狀態是否為終止態（不可回到 active）。
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusRevoked || s == StatusSuspended
}

// DeviceType 定義登入裝置類型。
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

// ValidDeviceType 檢查裝置類型是否在允許清單內。
func ValidDeviceType(t DeviceType) bool {
	switch t {
	case DeviceMobile, DeviceTablet, DeviceDesktop, DeviceUnknown:
		return true
	}
	return false
}

// RiskLevel 定義風險等級。
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast 回傳 r 與 min 之中較高的等級。
func (r RiskLevel) AtLeast(min RiskLevel) RiskLevel {
	if riskRank[r] >= riskRank[min] {
		return r
	}
	return min
}

// 可疑行為的事由代碼。
const (
	ReasonFailedAttempts = "failed_attempts"
	ReasonLocationChange = "location_change"
	ReasonNewDevice      = "new_device"
	ReasonTokenReuse     = "token_reuse"
)

// Device 紀錄登入裝置描述，僅供顯示與安全訊號。
type Device struct {
	Type    DeviceType
	Name    string
	Browser string
	OS      string
}

// Network 紀錄登入來源網路資訊，僅作安全訊號，不做存取控制。
type Network struct {
	IPAddress string
	Country   string
	City      string
}

// Security 紀錄 session 的安全狀態欄位。
type Security struct {
	RiskLevel         RiskLevel
	IsSuspicious      bool
	SuspiciousReasons []string
	LoginAttempts     int
}

// Metadata 保存附加稽核資訊。
type Metadata struct {
	Notes string
}

// Session 代表單一裝置／瀏覽器的登入實例。
// refresh token 僅保存確定性雜湊，明文不落地；
// 記錄不做實體刪除，透過 Status 原地退役。
type Session struct {
	ID                    string
	UserID                string
	AccessTokenID         string
	RefreshTokenHash      string
	Status                Status
	Device                Device
	Network               Network
	Security              Security
	Metadata              Metadata
	CreatedAt             time.Time
	LastAccessedAt        time.Time
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	RevokedAt             *time.Time
}

// HashToken 計算 token 的確定性 sha256 雜湊（hex 編碼）。
// 不加鹽：雜湊本身即為查詢鍵，等值查詢需可直接命中索引。
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// AccessTokenExpired 檢查 access token 是否已過期。
func (s Session) AccessTokenExpired(now time.Time) bool {
	return !s.AccessTokenExpiresAt.After(now)
}

// RefreshTokenExpired 檢查 refresh token 是否已過期。
func (s Session) RefreshTokenExpired(now time.Time) bool {
	return !s.RefreshTokenExpiresAt.After(now)
}

// UsableForAccess 檢查 session 是否可用於 access token 授權。
func (s Session) UsableForAccess(now time.Time) bool {
	return s.Status == StatusActive && !s.AccessTokenExpired(now)
}

// UsableForRefresh 檢查 session 是否可用於 refresh 流程。
func (s Session) UsableForRefresh(now time.Time) bool {
	return s.Status == StatusActive && !s.RefreshTokenExpired(now)
}

// VerifyRefreshToken 檢查明文 token 是否為本 session 綁定的 refresh token。
func (s Session) VerifyRefreshToken(plain string) bool {
	if plain == "" || s.RefreshTokenHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(plain)), []byte(s.RefreshTokenHash)) == 1
}

// SetRefreshToken 以新的明文 token 重算並替換雜湊。
func (s *Session) SetRefreshToken(plain string) {
	s.RefreshTokenHash = HashToken(plain)
}

// HasReason 檢查事由是否已存在。
func (sec Security) HasReason(reason string) bool {
	for _, r := range sec.SuspiciousReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// AddReasons 將事由併入集合，重複者忽略。
func (sec *Security) AddReasons(reasons ...string) {
	for _, r := range reasons {
		if r == "" || sec.HasReason(r) {
			continue
		}
		sec.SuspiciousReasons = append(sec.SuspiciousReasons, r)
	}
}

// RemoveReason 自集合移除單一事由，其餘保留。
func (sec *Security) RemoveReason(reason string) {
	out := sec.SuspiciousReasons[:0]
	for _, r := range sec.SuspiciousReasons {
		if r != reason {
			out = append(out, r)
		}
	}
	sec.SuspiciousReasons = out
}

// RiskForReasons 依事由數量推導風險等級：0 低、1 高、2 以上臨界。
func RiskForReasons(count int) RiskLevel {
	switch {
	case count <= 0:
		return RiskLow
	case count == 1:
		return RiskHigh
	default:
		return RiskCritical
	}
}
