package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/utils"
)

const (
	OpFetchUserMonitors       = "FetchUserMonitors"
	OpCreateMonitor           = "CreateMonitor"
	OpUpdateMonitor           = "UpdateMonitor"
	OpFetchSingleMonitor      = "FetchSingleMonitor"
	OpSetAutoRefresh          = "SetAutoRefresh"
	OpFetchNotificationGroups = "FetchNotificationGroups"
)

var ErrUnsuccessful = errors.New("dashboard reported failure")

var _ Service = (*Client)(nil)

// Client implements Service over the dashboard's HTTP+JSON API.
type Client struct {
	base  string
	hc    *http.Client
	token string
}

type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = utils.HttpClient
	}
	c := &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) FetchUserMonitors(ctx context.Context, userID string) ([]model.Monitor, error) {
	data, err := c.do(ctx, OpFetchUserMonitors, http.MethodGet, "/api/v1/user/"+url.PathEscape(userID)+"/monitors", nil)
	if err != nil {
		return nil, err
	}
	return model.DecodeMonitors(data.Get("monitors")), nil
}

func (c *Client) CreateMonitor(ctx context.Context, m model.Monitor) (model.Monitor, error) {
	data, err := c.do(ctx, OpCreateMonitor, http.MethodPost, "/api/v1/monitor", m)
	if err != nil {
		return model.Monitor{}, err
	}
	return singleMonitor(OpCreateMonitor, data)
}

func (c *Client) UpdateMonitor(ctx context.Context, monitorID, userID string, m model.Monitor) (model.Monitor, error) {
	path := "/api/v1/monitor/" + url.PathEscape(monitorID) + "?" + url.Values{"userId": {userID}}.Encode()
	data, err := c.do(ctx, OpUpdateMonitor, http.MethodPatch, path, m)
	if err != nil {
		return model.Monitor{}, err
	}
	return singleMonitor(OpUpdateMonitor, data)
}

func (c *Client) FetchSingleMonitor(ctx context.Context, monitorID string) ([]model.Monitor, error) {
	data, err := c.do(ctx, OpFetchSingleMonitor, http.MethodGet, "/api/v1/monitor/"+url.PathEscape(monitorID), nil)
	if err != nil {
		return nil, err
	}
	return model.DecodeMonitors(data.Get("monitors")), nil
}

func (c *Client) SetAutoRefresh(ctx context.Context, userID string, refresh bool) (bool, error) {
	data, err := c.do(ctx, OpSetAutoRefresh, http.MethodPost, "/api/v1/user/"+url.PathEscape(userID)+"/auto-refresh",
		model.AutoRefreshForm{Refresh: refresh})
	if err != nil {
		return false, err
	}
	return data.Get("refresh").Bool(), nil
}

func (c *Client) FetchNotificationGroups(ctx context.Context, userID string) ([]model.NotificationGroup, error) {
	data, err := c.do(ctx, OpFetchNotificationGroups, http.MethodGet, "/api/v1/user/"+url.PathEscape(userID)+"/notification-groups", nil)
	if err != nil {
		return nil, err
	}
	groups := make([]model.NotificationGroup, 0)
	if !data.IsArray() {
		return groups, nil
	}
	if err := utils.Json.UnmarshalFromString(data.Raw, &groups); err != nil {
		return nil, &RemoteCallError{Op: OpFetchNotificationGroups, Err: err}
	}
	return groups, nil
}

// singleMonitor accepts both {"monitor": {...}} and the older
// {"monitors": [{...}]} shape.
func singleMonitor(op string, data gjson.Result) (model.Monitor, error) {
	if m := data.Get("monitor"); m.IsObject() {
		return model.DecodeMonitor(m), nil
	}
	if m := data.Get("monitors.0"); m.IsObject() {
		return model.DecodeMonitor(m), nil
	}
	return model.Monitor{}, &RemoteCallError{Op: op, Err: errors.New("response carries no monitor")}
}

// do performs one request and returns the envelope's data member.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		payload, err := utils.Json.Marshal(body)
		if err != nil {
			return gjson.Result{}, &RemoteCallError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return gjson.Result{}, &RemoteCallError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return gjson.Result{}, &RemoteCallError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, &RemoteCallError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &RemoteCallError{Op: op, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected response body %q", truncate(raw, 64))}
	}
	envelope := gjson.ParseBytes(raw)
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Get("success").Bool() {
		rce := &RemoteCallError{Op: op, Err: ErrUnsuccessful}
		if resp.StatusCode >= http.StatusBadRequest {
			rce.Status = resp.StatusCode
		}
		if msg := envelope.Get("error").String(); msg != "" {
			rce.Err = fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
		}
		if fields := envelope.Get("fields"); fields.IsObject() {
			rce.Fields, _ = utils.GjsonParseStringMap(fields.Raw)
		}
		return gjson.Result{}, rce
	}
	return envelope.Get("data"), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
