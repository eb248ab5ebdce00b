// Package dao is the dashboard's storage of users, monitors and
// notification groups.
package dao

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/naiba/nezha-uptime/model"
)

var ErrNotFound = errors.New("record not found")

type Dao struct {
	DB *gorm.DB
}

// Open opens (creating if needed) the sqlite file at path.
func Open(path string, debug bool) (*Dao, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if debug {
		db = db.Debug()
	}
	return New(db)
}

func New(db *gorm.DB) (*Dao, error) {
	if err := db.AutoMigrate(&model.User{}, &model.Monitor{}, &model.NotificationGroup{}); err != nil {
		return nil, err
	}
	return &Dao{DB: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// UserMonitors lists the monitors of userID, newest first.
func (d *Dao) UserMonitors(ctx context.Context, userID string) ([]model.Monitor, error) {
	monitors := make([]model.Monitor, 0)
	err := d.DB.WithContext(ctx).Where("user_id = ?", userID).Order("rowid desc").Find(&monitors).Error
	return monitors, err
}

func (d *Dao) Monitor(ctx context.Context, id string) (model.Monitor, error) {
	var m model.Monitor
	if err := d.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return model.Monitor{}, notFound(err)
	}
	return m, nil
}

// CreateMonitor stores m under a fresh id.
func (d *Dao) CreateMonitor(ctx context.Context, m model.Monitor) (model.Monitor, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return model.Monitor{}, err
	}
	m.ID = id
	m.Normalize()
	if err := d.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return model.Monitor{}, err
	}
	return m, nil
}

// UpdateMonitor overwrites monitor id. It must belong to userID.
func (d *Dao) UpdateMonitor(ctx context.Context, id, userID string, m model.Monitor) (model.Monitor, error) {
	existing, err := d.Monitor(ctx, id)
	if err != nil {
		return model.Monitor{}, err
	}
	if existing.UserID != userID {
		return model.Monitor{}, ErrNotFound
	}
	m.ID = id
	m.UserID = userID
	m.Normalize()
	if err := d.DB.WithContext(ctx).Save(&m).Error; err != nil {
		return model.Monitor{}, err
	}
	return m, nil
}

func (d *Dao) User(ctx context.Context, id string) (model.User, error) {
	var u model.User
	if err := d.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

// SaveUser creates or replaces u.
func (d *Dao) SaveUser(ctx context.Context, u model.User) error {
	return d.DB.WithContext(ctx).Save(&u).Error
}

// SetAutoRefresh stores the flag, creating the user on first use.
func (d *Dao) SetAutoRefresh(ctx context.Context, userID string, refresh bool) (bool, error) {
	u, err := d.User(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		u = model.User{ID: userID, Username: userID}
	} else if err != nil {
		return false, err
	}
	u.AutoRefresh = refresh
	if err := d.SaveUser(ctx, u); err != nil {
		return false, err
	}
	return refresh, nil
}

// AutoRefreshUsers lists the ids of users with auto refresh on.
func (d *Dao) AutoRefreshUsers(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.DB.WithContext(ctx).Model(&model.User{}).Where("auto_refresh = ?", true).Pluck("id", &ids).Error
	return ids, err
}

func (d *Dao) NotificationGroups(ctx context.Context, userID string) ([]model.NotificationGroup, error) {
	groups := make([]model.NotificationGroup, 0)
	err := d.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&groups).Error
	return groups, err
}

func (d *Dao) CreateNotificationGroup(ctx context.Context, g model.NotificationGroup) (model.NotificationGroup, error) {
	if err := d.DB.WithContext(ctx).Create(&g).Error; err != nil {
		return model.NotificationGroup{}, err
	}
	return g, nil
}
