package model

import "time"

const (
	PreferenceKeyView    = "view"
	PreferenceKeyRefresh = "refresh"
)

// ViewMode is how the monitor listing is displayed.
type ViewMode string

const (
	ViewBox   ViewMode = "box"
	ViewTable ViewMode = "table"
)

// ParseViewMode falls back to ViewBox for anything unknown.
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ViewTable:
		return ViewTable
	default:
		return ViewBox
	}
}

// Preference is one persisted key/value pair of the client.
type Preference struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string
	UpdatedAt time.Time
}
