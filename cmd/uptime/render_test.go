package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/service/pagination"
	"github.com/naiba/nezha-uptime/service/reconciler"
)

func TestRender(t *testing.T) {
	monitors := []model.Monitor{
		{ID: "1", Name: "web", Type: "http", URL: "https://example.com", Frequency: 30, Active: true},
		{ID: "2", Name: "db", Type: "tcp", URL: "db.example.com", Frequency: 60},
	}
	s := reconciler.State{Monitors: monitors, View: model.ViewBox, Window: pagination.Window{Start: 0, End: 10}}

	box := render(s, monitors)
	assert.Contains(t, box, "2 monitors | showing 1-2 | auto refresh off")
	assert.Contains(t, box, "web")
	assert.Contains(t, box, "paused")

	s.View = model.ViewTable
	s.UI.EnableRefresh = true
	s.UI.AutoRefreshLoading = true
	table := render(s, monitors)
	assert.Contains(t, table, "NAME")
	assert.Contains(t, table, "db.example.com")
	assert.Contains(t, table, "auto refresh on")
	assert.Contains(t, table, "(refreshing)")

	assert.Contains(t, render(reconciler.State{}, nil), "no monitors")
}
