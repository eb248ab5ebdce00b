package model

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/naiba/nezha-uptime/pkg/utils"
)

var ErrMalformedEvent = errors.New("malformed monitors updated event")

// DecodeMonitor builds a normalized Monitor from a loosely typed JSON object.
// Numbers may arrive as strings and vice versa, the notification group may be
// nested, and older dashboards spell responseTime as reponseTime.
func DecodeMonitor(r gjson.Result) Monitor {
	m := Monitor{
		ID:             r.Get("id").String(),
		Name:           r.Get("name").String(),
		UserID:         r.Get("userId").String(),
		NotificationID: r.Get("notificationId").Uint(),
		Active:         r.Get("active").Bool(),
		Status:         int(r.Get("status").Int()),
		Frequency:      int(r.Get("frequency").Int()),
		URL:            r.Get("url").String(),
		Type:           r.Get("type").String(),
		AlertThreshold: int(r.Get("alertThreshold").Int()),
		Connection:     r.Get("connection").String(),
		Port:           int(r.Get("port").Int()),
		Timeout:        int(r.Get("timeout").Int()),
	}
	if m.NotificationID == 0 {
		m.NotificationID = r.Get("notifications.id").Uint()
	}
	rt := r.Get("responseTime")
	if !rt.Exists() {
		rt = r.Get("reponseTime")
	}
	m.ResponseTime = rt.String()
	m.Normalize()
	return m
}

// DecodeMonitors decodes a JSON array of monitors, keeping server order.
// Anything that is not an array yields an empty, non-nil list.
func DecodeMonitors(r gjson.Result) []Monitor {
	monitors := make([]Monitor, 0)
	if !r.IsArray() {
		return monitors
	}
	r.ForEach(func(_, value gjson.Result) bool {
		monitors = append(monitors, DecodeMonitor(value))
		return true
	})
	return monitors
}

// DecodeMonitorsUpdated parses a push payload of the form
// {"userId": ..., "monitors": [...]}.
func DecodeMonitorsUpdated(raw []byte) (MonitorsUpdatedEvent, error) {
	if !gjson.ValidBytes(raw) {
		return MonitorsUpdatedEvent{}, ErrMalformedEvent
	}
	userID, err := utils.GjsonGet(raw, "userId")
	if err != nil {
		return MonitorsUpdatedEvent{}, ErrMalformedEvent
	}
	monitors, err := utils.GjsonGet(raw, "monitors")
	if err != nil {
		return MonitorsUpdatedEvent{}, ErrMalformedEvent
	}
	return MonitorsUpdatedEvent{
		UserID:   userID.String(),
		Monitors: DecodeMonitors(monitors),
	}, nil
}
