package dao

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/naiba/nezha-uptime/model"
)

type SeedUser struct {
	ID          string `yaml:"id"`
	Username    string `yaml:"username"`
	Email       string `yaml:"email,omitempty"`
	AutoRefresh bool   `yaml:"autoRefresh,omitempty"`
}

type SeedGroup struct {
	ID        uint64   `yaml:"id"`
	UserID    string   `yaml:"userId"`
	GroupName string   `yaml:"groupName"`
	Emails    []string `yaml:"emails"`
}

type SeedMonitor struct {
	Name           string `yaml:"name"`
	UserID         string `yaml:"userId"`
	NotificationID uint64 `yaml:"notificationId,omitempty"`
	Active         bool   `yaml:"active"`
	Frequency      int    `yaml:"frequency,omitempty"`
	URL            string `yaml:"url"`
	Type           string `yaml:"type"`
	AlertThreshold int    `yaml:"alertThreshold,omitempty"`
	Connection     string `yaml:"connection,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Timeout        int    `yaml:"timeout,omitempty"`
	ResponseTime   string `yaml:"responseTime,omitempty"`
}

// Seed is the YAML document the dashboard can be primed with.
type Seed struct {
	Users              []SeedUser    `yaml:"users"`
	NotificationGroups []SeedGroup   `yaml:"notificationGroups"`
	Monitors           []SeedMonitor `yaml:"monitors"`
}

// LoadSeed reads a seed file. A missing file is not an error.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug().Str("seed_path", path).Msg("[Dao] Seed file not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// Apply stores the seed. Users and groups are upserted, monitors are only
// added for users that have none yet, so restarting does not duplicate them.
func (d *Dao) Apply(ctx context.Context, seed *Seed) error {
	if seed == nil {
		return nil
	}
	for _, u := range seed.Users {
		if err := d.SaveUser(ctx, model.User{ID: u.ID, Username: u.Username, Email: u.Email, AutoRefresh: u.AutoRefresh}); err != nil {
			return err
		}
	}
	for _, g := range seed.NotificationGroups {
		group := model.NotificationGroup{ID: g.ID, UserID: g.UserID, GroupName: g.GroupName, Emails: g.Emails}
		if err := d.DB.WithContext(ctx).Save(&group).Error; err != nil {
			return err
		}
	}

	seeded := make(map[string]bool)
	for _, sm := range seed.Monitors {
		if _, checked := seeded[sm.UserID]; !checked {
			var count int64
			if err := d.DB.WithContext(ctx).Model(&model.Monitor{}).Where("user_id = ?", sm.UserID).Count(&count).Error; err != nil {
				return err
			}
			seeded[sm.UserID] = count == 0
		}
		if !seeded[sm.UserID] {
			continue
		}
		form := model.MonitorForm{
			Name:           sm.Name,
			UserID:         sm.UserID,
			NotificationID: sm.NotificationID,
			Active:         sm.Active,
			Frequency:      sm.Frequency,
			URL:            sm.URL,
			Type:           sm.Type,
			AlertThreshold: sm.AlertThreshold,
			Connection:     sm.Connection,
			Port:           sm.Port,
			Timeout:        sm.Timeout,
			ResponseTime:   sm.ResponseTime,
		}
		if form.Frequency == 0 {
			form.Frequency = model.DefaultFrequency
		}
		if err := model.ValidateMonitorForm(form); err != nil {
			log.Warn().Err(err).Str("name", sm.Name).Msg("[Dao] Skipping invalid seed monitor")
			continue
		}
		if _, err := d.CreateMonitor(ctx, form.Monitor()); err != nil {
			return err
		}
	}
	return nil
}
