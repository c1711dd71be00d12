package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/subscriber"
)

// API is the authoritative store as seen by a client. Push frames are only
// hints; these calls are the truth.
type API interface {
	UnreadCount(ctx context.Context) (int, error)
	Notifications(ctx context.Context) ([]notification.Notification, error)
	MarkRead(ctx context.Context, notificationId string) error
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

// APIClient talks to the notifier REST surface on behalf of one identity.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	identity   subscriber.Identity
}

func NewAPIClient(baseURL string, identity subscriber.Identity) *APIClient {
	return &APIClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  baseURL,
		identity: identity,
	}
}

func (c *APIClient) UnreadCount(ctx context.Context) (int, error) {
	var response unreadCountResponse
	err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", &response)
	if err != nil {
		return 0, err
	}

	return response.Count, nil
}

func (c *APIClient) Notifications(ctx context.Context) ([]notification.Notification, error) {
	var notifications []notification.Notification
	err := c.doJSON(ctx, http.MethodGet, "/notifications", &notifications)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (c *APIClient) MarkRead(ctx context.Context, notificationId string) error {
	if notificationId == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("notificationId cannot be empty"))
	}

	return c.doJSON(ctx, http.MethodPatch, "/notifications/"+notificationId+"/read", nil)
}

func (c *APIClient) doJSON(ctx context.Context, method string, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return ierr.New(ierr.ErrorCodeSync, err)
	}

	req.Header.Set("X-Subscriber-Id", c.identity.ID)
	req.Header.Set("X-Subscriber-Role", string(c.identity.Role))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ierr.New(ierr.ErrorCodeSync, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return ierr.New(ierr.ErrorCodeSync,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return ierr.New(ierr.ErrorCodeSync, err)
		}
	}

	return nil
}
