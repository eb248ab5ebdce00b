// Package preference persists the small scalar settings of a client session
// (view mode, auto-refresh flag) outside the process.
package preference

import (
	"errors"
	"strconv"
	"strings"

	"github.com/naiba/nezha-uptime/model"
)

var ErrNotFound = errors.New("preference not found")

// Store is a string keyed, string valued store. Last write wins.
type Store interface {
	// Get returns ErrNotFound when key has never been set.
	Get(key string) (string, error)
	Set(key, value string) error
}

// View reads the persisted view mode. Absent or unknown values read as box.
func View(s Store) model.ViewMode {
	v, err := s.Get(model.PreferenceKeyView)
	if err != nil {
		return model.ViewBox
	}
	return model.ParseViewMode(v)
}

func SetView(s Store, mode model.ViewMode) error {
	return s.Set(model.PreferenceKeyView, string(model.ParseViewMode(string(mode))))
}

// AutoRefresh reads the persisted refresh flag. Absent or malformed values
// read as false.
func AutoRefresh(s Store) bool {
	v, err := s.Get(model.PreferenceKeyRefresh)
	if err != nil {
		return false
	}
	enabled, err := strconv.ParseBool(strings.Trim(strings.TrimSpace(v), `"`))
	return err == nil && enabled
}

func SetAutoRefresh(s Store, enabled bool) error {
	return s.Set(model.PreferenceKeyRefresh, strconv.FormatBool(enabled))
}

// Hydrate writes the default of every missing key, so later readers see a
// concrete value.
func Hydrate(s Store) error {
	if _, err := s.Get(model.PreferenceKeyView); errors.Is(err, ErrNotFound) {
		if err := SetView(s, model.ViewBox); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if _, err := s.Get(model.PreferenceKeyRefresh); errors.Is(err, ErrNotFound) {
		if err := SetAutoRefresh(s, false); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}
