package model

// NotificationGroup is a named set of alert recipients. Monitors point at it
// by id only.
type NotificationGroup struct {
	ID        uint64   `json:"id" gorm:"primaryKey"`
	UserID    string   `json:"userId" gorm:"index"`
	GroupName string   `json:"groupName"`
	Emails    []string `json:"emails" gorm:"serializer:json"`
}
