package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"github.com/naiba/nezha-uptime/model"
)

// listUserMonitors 获取用户的全部监控, 新建的在前
func (ctl *Controller) listUserMonitors(c *gin.Context) (model.MonitorResponse, error) {
	userID := c.Param("id")
	v, err, _ := ctl.requestGroup.Do("monitors::"+userID, func() (any, error) {
		return ctl.dao.UserMonitors(c.Request.Context(), userID)
	})
	if err != nil {
		return model.MonitorResponse{}, err
	}
	return model.MonitorResponse{Monitors: v.([]model.Monitor)}, nil
}

// getMonitor keeps the singleton-in-array shape older clients expect.
func (ctl *Controller) getMonitor(c *gin.Context) (model.MonitorResponse, error) {
	m, err := ctl.dao.Monitor(c.Request.Context(), c.Param("id"))
	if err != nil {
		return model.MonitorResponse{}, err
	}
	return model.MonitorResponse{Monitors: []model.Monitor{m}}, nil
}

func (ctl *Controller) createMonitor(c *gin.Context) (model.MonitorItemResponse, error) {
	mf, err := bindMonitorForm(c)
	if err != nil {
		return model.MonitorItemResponse{}, err
	}
	if mf.UserID == "" {
		return model.MonitorItemResponse{}, model.ValidationError{"userId": "userId is required"}
	}
	m, err := ctl.dao.CreateMonitor(c.Request.Context(), mf.Monitor())
	if err != nil {
		return model.MonitorItemResponse{}, err
	}
	ctl.publishUser(context.WithoutCancel(c.Request.Context()), m.UserID)
	return model.MonitorItemResponse{Monitor: m}, nil
}

func (ctl *Controller) updateMonitor(c *gin.Context) (model.MonitorItemResponse, error) {
	userID := c.Query("userId")
	if userID == "" {
		return model.MonitorItemResponse{}, model.ValidationError{"userId": "userId is required"}
	}
	mf, err := bindMonitorForm(c)
	if err != nil {
		return model.MonitorItemResponse{}, err
	}
	m, err := ctl.dao.UpdateMonitor(c.Request.Context(), c.Param("id"), userID, mf.Monitor())
	if err != nil {
		return model.MonitorItemResponse{}, err
	}
	ctl.publishUser(context.WithoutCancel(c.Request.Context()), userID)
	return model.MonitorItemResponse{Monitor: m}, nil
}

// bindMonitorForm reads a monitor from the body. Clients send the record
// itself, so it is decoded as a Monitor first and copied into the form.
func bindMonitorForm(c *gin.Context) (model.MonitorForm, error) {
	var m model.Monitor
	if err := c.ShouldBindJSON(&m); err != nil {
		return model.MonitorForm{}, &badRequestError{fmt.Errorf("decode monitor: %w", err)}
	}
	var mf model.MonitorForm
	if err := copier.Copy(&mf, &m); err != nil {
		return model.MonitorForm{}, err
	}
	mf.URL = strings.TrimSpace(mf.URL)
	if err := model.ValidateMonitorForm(mf); err != nil {
		return model.MonitorForm{}, err
	}
	return mf, nil
}
