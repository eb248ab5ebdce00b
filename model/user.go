package model

// User is the dashboard-side owner of monitors. AutoRefresh is the server
// flag that makes the dashboard push periodic updates to this user.
type User struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	Username    string `json:"username" gorm:"uniqueIndex"`
	Email       string `json:"email,omitempty"`
	AutoRefresh bool   `json:"autoRefresh"`
}
