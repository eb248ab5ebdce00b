package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/mygin"
	"github.com/naiba/nezha-uptime/service/autorefresh"
	"github.com/naiba/nezha-uptime/service/dao"
	"github.com/naiba/nezha-uptime/service/push"
)

const publishTimeout = time.Second * 10

type Options struct {
	Dao *dao.Dao
	// Hub feeds the websocket endpoint.
	Hub *push.Hub
	// Publisher receives every MonitorsUpdated event. Defaults to Hub.
	Publisher push.Publisher
	Scheduler *autorefresh.Scheduler
	Debug     bool
	Token     string
	Logger    *zerolog.Logger
}

type Controller struct {
	dao       *dao.Dao
	hub       *push.Hub
	publisher push.Publisher
	scheduler *autorefresh.Scheduler
	logger    zerolog.Logger

	requestGroup singleflight.Group
}

func New(opts Options) *Controller {
	c := &Controller{
		dao:       opts.Dao,
		hub:       opts.Hub,
		publisher: opts.Publisher,
		scheduler: opts.Scheduler,
		logger:    log.Logger,
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	}
	if c.publisher == nil {
		c.publisher = c.hub
	}
	return c
}

// Router builds the gin engine of the dashboard.
func Router(opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	c := New(opts)
	r := gin.New()
	r.Use(gin.Recovery(), mygin.RecordPath, mygin.Logger(c.logger))
	if opts.Debug {
		pprof.Register(r)
	}
	c.routers(r, opts.Token)
	return r
}

func (ctl *Controller) routers(r *gin.Engine, token string) {
	auth := mygin.Authorize(mygin.AuthorizeOption{Token: token, Msg: "unauthorized"})

	api := r.Group("api/v1", auth)
	{
		api.GET("/user/:id/monitors", commonHandler(ctl.listUserMonitors))
		api.GET("/user/:id/notification-groups", commonHandler(ctl.listNotificationGroups))
		api.POST("/user/:id/auto-refresh", commonHandler(ctl.setAutoRefresh))
		api.POST("/monitor", commonHandler(ctl.createMonitor))
		api.GET("/monitor/:id", commonHandler(ctl.getMonitor))
		api.PATCH("/monitor/:id", commonHandler(ctl.updateMonitor))
	}

	ws := r.Group("ws", auth)
	{
		ws.GET("/monitors", ctl.monitorStream)
	}
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func commonHandler[T any](handler func(*gin.Context) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := handler(c)
		if err == nil {
			c.JSON(http.StatusOK, model.CommonResponse[T]{Success: true, Data: data})
			return
		}

		var (
			ve  model.ValidationError
			bre *badRequestError
		)
		switch {
		case errors.As(err, &ve):
			mygin.ShowError(c, mygin.ErrInfo{Code: http.StatusBadRequest, Msg: ve.Error(), Fields: ve})
		case errors.As(err, &bre):
			mygin.ShowError(c, mygin.ErrInfo{Code: http.StatusBadRequest, Msg: err.Error()})
		case errors.Is(err, dao.ErrNotFound):
			mygin.ShowError(c, mygin.ErrInfo{Code: http.StatusNotFound, Msg: err.Error()})
		default:
			log.Warn().Err(err).Str("path", c.GetString("MatchedPath")).Msg("[Dashboard] Request failed")
			mygin.ShowError(c, mygin.ErrInfo{Code: http.StatusInternalServerError, Msg: err.Error()})
		}
	}
}

// publishUser pushes the current monitors of userID to every subscriber.
func (ctl *Controller) publishUser(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	monitors, err := ctl.dao.UserMonitors(ctx, userID)
	if err != nil {
		ctl.logger.Warn().Err(err).Str("user_id", userID).Msg("[Dashboard] Load monitors for push failed")
		return
	}
	if err := ctl.publisher.Publish(ctx, model.MonitorsUpdatedEvent{UserID: userID, Monitors: monitors}); err != nil {
		ctl.logger.Warn().Err(err).Str("user_id", userID).Msg("[Dashboard] Publish failed")
	}
}
