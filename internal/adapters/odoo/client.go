package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"logistics-route-service/internal/platform/obs"
	"logistics-route-service/internal/ports"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config describes one registry connection.
type Config struct {
	URL        string
	DB         string
	User       string
	APIKey     string
	Timeout    time.Duration
	SessionTTL time.Duration
}

// Client talks JSON-RPC to one registry.
//
// The uid returned by login is cached until SessionTTL passes or a call fails
// with an authentication fault, in which case the client logs in again and
// retries the call once. Client is safe for concurrent use.
type Client struct {
	cfg     Config
	session *http.Client
	log     *zap.Logger
	now     func() time.Time

	reqID atomic.Int64

	mu        sync.Mutex
	uid       int
	expiresAt time.Time
}

var _ ports.Registry = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" || cfg.DB == "" || cfg.User == "" || cfg.APIKey == "" {
		return nil, errors.New("odoo client: url, db, user and api key are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:     cfg,
		session: &http.Client{Timeout: cfg.Timeout},
		log:     logger.With(zap.String("registry", cfg.URL), zap.String("db", cfg.DB)),
		now:     time.Now,
	}, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// rpc posts one JSON-RPC envelope and returns the raw result.
func (c *Client) rpc(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.reqID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// login authenticates and returns a fresh uid.
func (c *Client) login(ctx context.Context) (int, error) {
	raw, err := c.rpc(ctx, "common", "login", []any{c.cfg.DB, c.cfg.User, c.cfg.APIKey})
	if err != nil {
		return 0, fmt.Errorf("login: %w", err)
	}

	// A rejected login comes back as result=false rather than a fault.
	var uid int
	if err := json.Unmarshal(raw, &uid); err != nil || uid <= 0 {
		return 0, ErrLoginFailed
	}
	return uid, nil
}

// sessionUID returns the cached uid, logging in when it is missing or expired.
func (c *Client) sessionUID(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uid > 0 && c.now().Before(c.expiresAt) {
		return c.uid, nil
	}

	uid, err := c.login(ctx)
	if err != nil {
		return 0, err
	}
	c.uid = uid
	c.expiresAt = c.now().Add(c.cfg.SessionTTL)
	c.log.Debug("registry session established", zap.Int("uid", uid))
	return uid, nil
}

// invalidate drops the cached uid if it is still the one that failed.
func (c *Client) invalidate(uid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid == uid {
		c.uid = 0
		c.expiresAt = time.Time{}
	}
}

// Call runs model.method through execute_kw and decodes the result into out
// (which may be nil).
func (c *Client) Call(
	ctx context.Context,
	model string,
	method string,
	args []any,
	kwargs map[string]any,
	out any,
) (err error) {
	defer obs.Time(ctx, "odoo."+model+"."+method)(&err)

	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	execute := func(uid int) (json.RawMessage, error) {
		return c.rpc(ctx, "object", "execute_kw", []any{c.cfg.DB, uid, c.cfg.APIKey, model, method, args, kwargs})
	}

	uid, err := c.sessionUID(ctx)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", model, method, err)
	}

	raw, err := execute(uid)
	if err != nil && isAuthError(err) {
		c.log.Info("registry session rejected, logging in again",
			zap.String("model", model), zap.String("method", method))
		c.invalidate(uid)

		uid, err = c.sessionUID(ctx)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", model, method, err)
		}
		raw, err = execute(uid)
	}
	if err != nil {
		return fmt.Errorf("%s.%s: %w", model, method, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s.%s: decode result: %w", model, method, err)
	}
	return nil
}

func (c *Client) SearchRead(
	ctx context.Context,
	model string,
	domain ports.Domain,
	fields []string,
	limit int,
	out any,
) error {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if domain == nil {
		domain = ports.Domain{}
	}
	return c.Call(ctx, model, "search_read", []any{domain}, kwargs, out)
}

func (c *Client) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, model, "create", []any{values}, nil, &raw); err != nil {
		return 0, err
	}

	// Depending on the server version create answers with an id or a list of ids.
	var id int
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err == nil && len(ids) > 0 {
		return ids[0], nil
	}
	return 0, fmt.Errorf("%s.create: unexpected result %s", model, string(raw))
}

func (c *Client) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	return c.Call(ctx, model, "write", []any{ids, values}, nil, nil)
}

func (c *Client) Unlink(ctx context.Context, model string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return c.Call(ctx, model, "unlink", []any{ids}, nil, nil)
}
