package model

// MonitorForm is the raw, user-edited monitor record before validation.
type MonitorForm struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name" validate:"required,max=128"`
	UserID         string `json:"userId"`
	NotificationID uint64 `json:"notificationId"`
	Active         bool   `json:"active"`
	Status         int    `json:"status" validate:"gte=0"`
	Frequency      int    `json:"frequency" validate:"gte=30,lte=86400"`
	URL            string `json:"url" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=tcp http mongodb redis mysql postgres"`
	AlertThreshold int    `json:"alertThreshold" validate:"gte=0"`
	Connection     string `json:"connection" validate:"omitempty,oneof=established refused timeout none"`
	Port           int    `json:"port" validate:"gte=0,lte=65535"`
	Timeout        int    `json:"timeout" validate:"gte=0"`
	ResponseTime   string `json:"responseTime" validate:"omitempty,numeric"`
}

// NewMonitorForm returns the blank form a create screen starts from.
func NewMonitorForm(userID, monitorType string) MonitorForm {
	return MonitorForm{
		UserID:    userID,
		Active:    true,
		Frequency: DefaultFrequency,
		Type:      monitorType,
	}
}

// Monitor converts the form into a normalized Monitor ready for submission.
func (f MonitorForm) Monitor() Monitor {
	m := Monitor{
		ID:             f.ID,
		Name:           f.Name,
		UserID:         f.UserID,
		NotificationID: f.NotificationID,
		Active:         f.Active,
		Status:         f.Status,
		Frequency:      f.Frequency,
		URL:            f.URL,
		Type:           f.Type,
		AlertThreshold: f.AlertThreshold,
		Connection:     f.Connection,
		Port:           f.Port,
		Timeout:        f.Timeout,
		ResponseTime:   f.ResponseTime,
	}
	m.Normalize()
	return m
}

type MonitorResponse struct {
	Monitors []Monitor `json:"monitors"`
}

type MonitorItemResponse struct {
	Monitor Monitor `json:"monitor"`
}

type AutoRefreshForm struct {
	Refresh bool `json:"refresh"`
}

type AutoRefreshResponse struct {
	Refresh bool `json:"refresh"`
}

// MonitorsUpdatedEvent is what the push channel delivers to every subscriber.
// Consumers filter on UserID.
type MonitorsUpdatedEvent struct {
	UserID   string    `json:"userId"`
	Monitors []Monitor `json:"monitors"`
}
