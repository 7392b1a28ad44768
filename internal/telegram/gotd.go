package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// Client wraps the single gotd connection to Telegram. The session artifact
// is persisted to disk so a restart reconnects without interactive login.
type Client struct {
	sessionMgr *SessionManager
	logger     *zap.Logger

	client *telegram.Client
	api    *tg.Client

	mu   sync.Mutex
	self *tg.User
}

func NewClient(apiID int, apiHash, sessionDir string, sessionMgr *SessionManager, logger *zap.Logger) (*Client, error) {
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	c := &Client{
		sessionMgr: sessionMgr,
		logger:     logger,
	}
	c.client = telegram.NewClient(apiID, apiHash, telegram.Options{
		Logger:         logger.Named("gotd"),
		SessionStorage: &session.FileStorage{Path: filepath.Join(sessionDir, "session.json")},
	})
	c.api = c.client.API()
	return c, nil
}

// Run connects to Telegram and blocks until ctx is cancelled. On connect it
// probes the persisted session: a valid one marks the session manager
// authorized, otherwise the process stays up and waits for the auth flow.
func (c *Client) Run(ctx context.Context) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		c.sessionMgr.SetConnected(true)
		defer c.sessionMgr.SetConnected(false)

		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if status.Authorized {
			if err := c.sessionMgr.Authorize(); err != nil {
				return err
			}
			if self, err := c.client.Self(ctx); err == nil {
				c.setSelf(self)
			}
			c.logger.Info("restored persisted session")
		} else {
			c.logger.Info("no valid session, authentication required")
		}

		<-ctx.Done()
		return ctx.Err()
	})
}

// API returns the raw MTProto API bound to this connection.
func (c *Client) API() *tg.Client {
	return c.api
}

// Auth returns gotd's auth helper for the login exchange.
func (c *Client) Auth() *auth.Client {
	return c.client.Auth()
}

// RefreshSelf re-fetches and caches the logged-in account.
func (c *Client) RefreshSelf(ctx context.Context) (*tg.User, error) {
	self, err := c.client.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("get self: %w", err)
	}
	c.setSelf(self)
	return self, nil
}

// Self returns the cached logged-in account, nil before authorization.
func (c *Client) Self() *tg.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *Client) setSelf(u *tg.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.self = u
}
