package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// Endpoint paths.
const (
	pathOffices         = "/office/"
	pathNotifications   = "/notifications/"
	pathMarkAsRead      = "/notifications/mark-as-read/{id}"
	pathMarkAllAsRead   = "/notifications/mark-all-as-read"
	pathDeleteAll       = "/notifications"
	pathEnableDevice    = "/devices/enable/{id}"
	pathDisableDevice   = "/devices/disable/{id}"
	pathUpdateDevice    = "/devices/{id}"
	defaultTimeout      = 10 * time.Second
	maxErrorBodyInError = 256
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// MCUUpdate is the body of PATCH /devices/{id}.
type MCUUpdate struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	FWVersion   string            `json:"fw_version"`
	Model       string            `json:"model,omitempty"`
	OfficeID    int               `json:"office_id"`
	GatewayID   int               `json:"gateway_id"`
	Status      string            `json:"status"`
	LastSeenAt  string            `json:"last_seen_at,omitempty"`
	Actuators   []domain.Actuator `json:"actuators"`
	Sensors     []domain.Sensor   `json:"sensors"`
}

// UpdateFromMCU builds the update body for an MCU.
func UpdateFromMCU(m domain.MCU) MCUUpdate {
	return MCUUpdate{
		Name:        m.Name,
		Description: m.Description,
		FWVersion:   m.FWVersion,
		Model:       m.Model,
		OfficeID:    m.OfficeID,
		GatewayID:   m.GatewayID,
		Status:      m.Status,
		LastSeenAt:  m.LastSeenAt,
		Actuators:   m.Actuators,
		Sensors:     m.Sensors,
	}
}

// Client calls the backend REST API.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	http    *resty.Client
	timeout time.Duration
	logger  Logger
}

// New creates a Client.
//
// Parameters:
//   - cfg: base URL, per-request timeout and retry count
//   - logger: Logger instance (nil for no logging)
func New(cfg Config, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		timeout: timeout,
		logger:  logger,
	}
}

// ListOffices returns every office with its MCUs, sensors and actuators.
func (c *Client) ListOffices(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := c.do(ctx, http.MethodGet, pathOffices, func(r *resty.Request) {
		r.SetQueryParam("return_components", "true").SetResult(&rooms)
	})
	if err != nil {
		return nil, fmt.Errorf("listing offices: %w", err)
	}
	return rooms, nil
}

// ListNotifications returns the notifications known to the backend.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var notes []domain.Notification
	err := c.do(ctx, http.MethodGet, pathNotifications, func(r *resty.Request) {
		r.SetResult(&notes)
	})
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return notes, nil
}

// MarkAsRead marks one notification read.
func (c *Client) MarkAsRead(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPatch, pathMarkAsRead, withID(id))
}

// MarkAllAsRead marks every notification read.
func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPatch, pathMarkAllAsRead, nil)
}

// DeleteAllNotifications deletes every notification.
func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, pathDeleteAll, nil)
}

// EnableMCU enables an MCU.
func (c *Client) EnableMCU(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, pathEnableDevice, withID(id))
}

// DisableMCU disables an MCU.
func (c *Client) DisableMCU(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, pathDisableDevice, withID(id))
}

// UpdateMCU writes the editable fields of an MCU.
func (c *Client) UpdateMCU(ctx context.Context, id int, update MCUUpdate) error {
	return c.do(ctx, http.MethodPatch, pathUpdateDevice, func(r *resty.Request) {
		withID(id)(r)
		r.SetBody(update)
	})
}

func withID(id int) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetPathParam("id", strconv.Itoa(id))
	}
}

// do runs one request bounded by the client timeout.
func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.http.R().SetContext(ctx).ForceContentType("application/json")
	if build != nil {
		build(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("backend request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)

	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		body := resp.String()
		if len(body) > maxErrorBodyInError {
			body = body[:maxErrorBodyInError]
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode(), Body: body}
	}
	return nil
}
