package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusmarket/campusmarket/internal/model"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// ItemFilter narrows an item listing. A zero ItemFilter asks for the full
// listing.
type ItemFilter struct {
	CategoryID *int64
	Search     string
	SellerID   string
}

// IsFull reports whether no filter is set.
func (f ItemFilter) IsFull() bool {
	return f.CategoryID == nil && f.Search == "" && f.SellerID == ""
}

// Key returns a canonical identity for the filter. Equal filters have equal
// keys.
func (f ItemFilter) Key() string {
	cat := ""
	if f.CategoryID != nil {
		cat = strconv.FormatInt(*f.CategoryID, 10)
	}
	return "items?category=" + cat + "&search=" + url.QueryEscape(f.Search) + "&seller=" + url.QueryEscape(f.SellerID)
}

func (f ItemFilter) query() url.Values {
	q := url.Values{}
	if f.CategoryID != nil {
		q.Set("category", strconv.FormatInt(*f.CategoryID, 10))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.SellerID != "" {
		q.Set("sellerId", f.SellerID)
	}
	return q
}

// Client talks to the marketplace HTTP API. Every error it returns is a
// [*model.Error] of kind Application or Transport. Create one with
// [NewClient] or [NewClientWithHTTP].
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the API at baseURL. timeout bounds each
// request end to end.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must use http or https, got %q", u.Scheme)
	}
	return NewClientWithHTTP(baseURL, token, &http.Client{Timeout: timeout}, logger), nil
}

// NewClientWithHTTP creates a Client with a caller-supplied HTTP client.
// Tests use it with an httptest server's client.
func NewClientWithHTTP(baseURL, token string, hc *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      hc,
		logger:  logger,
	}
}

// Ping checks connectivity with retry. Only used at startup; every other
// call is single-shot.
func (c *Client) Ping(ctx context.Context) error {
	const op = "reach marketplace"
	err := Retry(ctx, defaultMaxAttempts, func() error {
		_, err := call[Health](ctx, c, op, http.MethodGet, "/api/health", nil, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("ping marketplace: %w", err)
	}
	return nil
}

// ListItems fetches the listing narrowed by f.
func (c *Client) ListItems(ctx context.Context, f ItemFilter) ([]model.Item, error) {
	const op = "load items"
	dtos, err := call[[]ItemDTO](ctx, c, op, http.MethodGet, "/api/items", f.query(), nil)
	if err != nil {
		return nil, err
	}
	if dtos == nil {
		return []model.Item{}, nil
	}
	items, err := convertAll(*dtos, itemFromDTO)
	if err != nil {
		return nil, model.TransportError(op, err)
	}
	return items, nil
}

// CreateItem submits a draft listing and returns the item as the server
// stored it.
func (c *Client) CreateItem(ctx context.Context, sellerID string, draft *model.NewItem) (*model.Item, error) {
	const op = "create item"
	q := url.Values{"sellerId": {sellerID}}
	dto, err := call[ItemDTO](ctx, c, op, http.MethodPost, "/api/items", q, buildCreateItemRequest(draft))
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, model.ApplicationError(op, "")
	}
	item, err := itemFromDTO(*dto)
	if err != nil {
		return nil, model.TransportError(op, err)
	}
	return &item, nil
}

// PlaceBid submits a bid and returns the server-confirmed bid.
func (c *Client) PlaceBid(ctx context.Context, bidderID, itemID string, amount float64) (*model.Bid, error) {
	const op = "place bid"
	path := "/api/items/" + url.PathEscape(itemID) + "/bids"
	q := url.Values{"bidderId": {bidderID}}
	dto, err := call[BidDTO](ctx, c, op, http.MethodPost, path, q, PlaceBidRequest{Amount: amount})
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, model.ApplicationError(op, "")
	}
	bid := bidFromDTO(*dto)
	return &bid, nil
}

// ListNotifications fetches a user's notifications.
func (c *Client) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	const op = "load notifications"
	path := "/api/users/" + url.PathEscape(userID) + "/notifications"
	q := url.Values{"unreadOnly": {strconv.FormatBool(unreadOnly)}}
	dtos, err := call[[]NotificationDTO](ctx, c, op, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	if dtos == nil {
		return []model.Notification{}, nil
	}
	ns, err := convertAll(*dtos, notificationFromDTO)
	if err != nil {
		return nil, model.TransportError(op, err)
	}
	return ns, nil
}

// SetNotificationRead marks a notification read or unread on the server.
func (c *Client) SetNotificationRead(ctx context.Context, id string, read bool) error {
	op, suffix := "mark notification read", "/read"
	if !read {
		op, suffix = "mark notification unread", "/unread"
	}
	_, err := call[json.RawMessage](ctx, c, op, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+suffix, nil, nil)
	return err
}

// ListOrders fetches orders where the user is buyer or seller.
func (c *Client) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	const op = "load orders"
	dtos, err := call[[]OrderDTO](ctx, c, op, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/orders", nil, nil)
	if err != nil {
		return nil, err
	}
	if dtos == nil {
		return []model.Order{}, nil
	}
	orders, err := convertAll(*dtos, orderFromDTO)
	if err != nil {
		return nil, model.TransportError(op, err)
	}
	return orders, nil
}

// call performs one request and unwraps the envelope. A nil payload with a
// nil error means the server answered success without data.
func call[T any](ctx context.Context, c *Client, op, method, path string, query url.Values, body any) (*T, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, model.TransportError(op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, model.TransportError(op, fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("marketplace request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, model.TransportError(op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, model.TransportError(op, fmt.Errorf("read response: %w", err))
	}

	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, model.TransportError(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		return nil, model.TransportError(op, fmt.Errorf("decode response: %w", err))
	}
	if !env.Success {
		c.logger.Debug("marketplace declined request",
			"path", path, "status", resp.StatusCode, "message", env.Message, "request_id", requestID)
		return nil, model.ApplicationError(op, env.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, model.TransportError(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return env.Data, nil
}
