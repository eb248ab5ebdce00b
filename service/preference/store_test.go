package preference

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naiba/nezha-uptime/model"
)

func TestDefaults(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, model.ViewBox, View(s))
	assert.False(t, AutoRefresh(s))

	_, err := s.Get(model.PreferenceKeyView)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutoRefreshMalformed(t *testing.T) {
	s := NewMemoryStore()
	for _, raw := range []string{"", "yes please", "null", "{}"} {
		require.NoError(t, s.Set(model.PreferenceKeyRefresh, raw))
		assert.False(t, AutoRefresh(s), raw)
	}
	require.NoError(t, s.Set(model.PreferenceKeyRefresh, `"true"`))
	assert.True(t, AutoRefresh(s))
}

func TestSetters(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, SetAutoRefresh(s, true))
	v, err := s.Get(model.PreferenceKeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	assert.True(t, AutoRefresh(s))

	require.NoError(t, SetView(s, model.ViewTable))
	assert.Equal(t, model.ViewTable, View(s))
	require.NoError(t, SetView(s, model.ViewMode("grid")))
	assert.Equal(t, model.ViewBox, View(s))
}

func TestHydrate(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(model.PreferenceKeyView, "table"))
	require.NoError(t, Hydrate(s))

	v, _ := s.Get(model.PreferenceKeyView)
	assert.Equal(t, "table", v)
	r, err := s.Get(model.PreferenceKeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "false", r)
}

func TestDBStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preference.db")

	s, err := OpenDBStore(path, false)
	require.NoError(t, err)
	_, err = s.Get(model.PreferenceKeyRefresh)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetAutoRefresh(s, true))
	require.NoError(t, SetView(s, model.ViewTable))
	require.NoError(t, SetView(s, model.ViewBox))
	require.NoError(t, SetView(s, model.ViewTable))
	require.NoError(t, s.Close())

	s, err = OpenDBStore(path, false)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, AutoRefresh(s))
	assert.Equal(t, model.ViewTable, View(s))

	var count int64
	require.NoError(t, s.db.Model(&model.Preference{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
