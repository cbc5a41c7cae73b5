// Package httpapi adapts an HTTP JSON sync gateway as the remote store.
// The terminal authenticates with short-lived HS256 tokens minted from a
// shared secret; identity management stays on the gateway side.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/remote"
)

const (
	httpTimeout = 30 * time.Second
	tokenTTL    = 5 * time.Minute
)

type Client struct {
	baseURL    string
	secret     []byte
	terminalID string
	storeID    string
	httpClient *http.Client
}

func NewClient(baseURL, secret, storeID, terminalID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     []byte(secret),
		terminalID: terminalID,
		storeID:    storeID,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type terminalClaims struct {
	jwtlib.RegisteredClaims
	StoreID string `json:"storeId"`
}

func (c *Client) mintToken() (string, error) {
	now := time.Now()
	claims := terminalClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   c.terminalID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(tokenTTL)),
		},
		StoreID: c.storeID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}
	defer drainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", remote.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

type pushRequest struct {
	Operation string          `json:"operation"`
	Version   int64           `json:"version"`
	Payload   json.RawMessage `json:"payload"`
}

type conflictResponse struct {
	Version int64 `json:"version"`
}

func (c *Client) Apply(ctx context.Context, item domain.SyncQueueItem) error {
	return c.push(ctx, item, false)
}

func (c *Client) Overwrite(ctx context.Context, item domain.SyncQueueItem) error {
	return c.push(ctx, item, true)
}

func (c *Client) push(ctx context.Context, item domain.SyncQueueItem, overwrite bool) error {
	body, err := json.Marshal(pushRequest{
		Operation: item.Operation,
		Version:   item.CreatedAt.UnixMilli(),
		Payload:   item.Payload,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/sync/%s", c.baseURL, item.EntityType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	token, err := c.mintToken()
	if err != nil {
		return fmt.Errorf("mint terminal token: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Idempotency-Key", item.IdempotencyKey)
	if overwrite {
		req.Header.Set("X-Sync-Overwrite", "true")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer drainBody(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict && !overwrite:
		var conflict conflictResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&conflict)
		return &remote.ConflictError{
			EntityType:    item.EntityType,
			EntityID:      remote.EntityID(item),
			RemoteVersion: conflict.Version,
		}
	default:
		return fmt.Errorf("sync %s %d: remote returned %d", item.EntityType, item.ID, resp.StatusCode)
	}
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
