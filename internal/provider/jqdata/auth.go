package jqdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// session returns the cached token, obtaining one on first use.
func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	if c.mob == "" {
		return "", errors.New("jqdata: account (mob) is required")
	}
	if c.password == "" {
		return "", errors.New("jqdata: password is required")
	}

	body, err := c.doWithRetry(ctx, map[string]any{
		"method": "get_token",
		"mob":    c.mob,
		"pwd":    c.password,
	})
	if err != nil {
		return "", fmt.Errorf("jqdata auth: %w", err)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", errors.New("jqdata auth: empty token")
	}

	c.token = token
	c.logger.Debug("jqdata session established")
	return token, nil
}

// resetSession drops the cached token if it is still the rejected one.
func (c *Client) resetSession(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == rejected {
		c.token = ""
	}
}
