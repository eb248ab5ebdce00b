package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	MonitorTypeTCP      = "tcp"
	MonitorTypeHTTP     = "http"
	MonitorTypeMongoDB  = "mongodb"
	MonitorTypeRedis    = "redis"
	MonitorTypeMySQL    = "mysql"
	MonitorTypePostgres = "postgres"
)

const (
	ConnectionEstablished = "established"
	ConnectionRefused     = "refused"
	ConnectionTimeout     = "timeout"
	ConnectionNone        = "none"
)

const (
	DefaultTimeout      = 3000 // ms
	DefaultResponseTime = 2000 // ms
	DefaultFrequency    = 30   // s
	MaxResponseTime     = math.MaxInt32
)

// MonitorTypes lists every type discriminator the dashboard accepts.
var MonitorTypes = []string{
	MonitorTypeTCP,
	MonitorTypeHTTP,
	MonitorTypeMongoDB,
	MonitorTypeRedis,
	MonitorTypeMySQL,
	MonitorTypePostgres,
}

// Monitor is one monitored target and its last aggregated state.
type Monitor struct {
	ID             string `json:"id,omitempty" gorm:"primaryKey;size:36"`
	Name           string `json:"name"`
	UserID         string `json:"userId" gorm:"index"`
	NotificationID uint64 `json:"notificationId"` // 所属通知组，0 表示未绑定
	Active         bool   `json:"active"`
	Status         int    `json:"status"`
	Frequency      int    `json:"frequency"`
	URL            string `json:"url"`
	Type           string `json:"type"`
	AlertThreshold int    `json:"alertThreshold"`
	Connection     string `json:"connection"`
	Port           int    `json:"port"`
	Timeout        int    `json:"timeout"`
	ResponseTime   string `json:"responseTime"`
}

// Normalize materializes timeout, responseTime and connection defaults.
// Calling it on an already normalized monitor changes nothing.
func (m *Monitor) Normalize() {
	if m.Timeout <= 0 {
		m.Timeout = DefaultTimeout
	}
	m.ResponseTime = NormalizeResponseTime(m.ResponseTime)
	if m.Connection == "" || m.Connection == ConnectionNone {
		m.Connection = ConnectionEstablished
	}
}

// NormalizeResponseTime accepts the serialized scalar in any of the shapes
// seen on the wire ("500", 500, "\"500\"") and returns its canonical form.
func NormalizeResponseTime(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return strconv.Itoa(min(n, MaxResponseTime))
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 1 {
		return strconv.Itoa(int(min(f, MaxResponseTime)))
	}
	return strconv.Itoa(DefaultResponseTime)
}

// ResponseTimeMS is the numeric value of ResponseTime, 0 when unparsable.
func (m *Monitor) ResponseTimeMS() int {
	n, _ := strconv.Atoi(m.ResponseTime)
	return n
}

// IsMonitorType reports whether t is a known type discriminator.
func IsMonitorType(t string) bool {
	return lo.Contains(MonitorTypes, t)
}
