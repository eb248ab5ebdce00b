package controller

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/naiba/nezha-uptime/model"
)

// setAutoRefresh 开关用户的自动刷新, 开启后定时推送该用户的监控
func (ctl *Controller) setAutoRefresh(c *gin.Context) (model.AutoRefreshResponse, error) {
	var form model.AutoRefreshForm
	if err := c.ShouldBindJSON(&form); err != nil {
		return model.AutoRefreshResponse{}, &badRequestError{fmt.Errorf("decode auto refresh: %w", err)}
	}
	userID := c.Param("id")
	refresh, err := ctl.dao.SetAutoRefresh(c.Request.Context(), userID, form.Refresh)
	if err != nil {
		return model.AutoRefreshResponse{}, err
	}
	if ctl.scheduler != nil {
		if err := ctl.scheduler.Set(userID, refresh); err != nil {
			return model.AutoRefreshResponse{}, err
		}
	}
	return model.AutoRefreshResponse{Refresh: refresh}, nil
}

func (ctl *Controller) listNotificationGroups(c *gin.Context) ([]model.NotificationGroup, error) {
	return ctl.dao.NotificationGroups(c.Request.Context(), c.Param("id"))
}
