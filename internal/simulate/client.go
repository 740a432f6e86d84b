package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Wire shapes mirrored from the API layer.

type sessionView struct {
	ID          string       `json:"id"`
	Phase       string       `json:"phase"`
	Score       int          `json:"score"`
	Combo       int          `json:"combo"`
	Hits        int          `json:"hitsCount"`
	Misses      int          `json:"missesCount"`
	RemainingMs int64        `json:"remainingMs"`
	Targets     []targetView `json:"targets"`
}

type targetView struct {
	ID    string `json:"id"`
	Char  string `json:"char"`
	State string `json:"state"`
}

type hitResponse struct {
	Hit    bool `json:"hit"`
	Points int  `json:"points"`
	Combo  int  `json:"combo"`
}

type completedSession struct {
	SessionID   string  `json:"sessionId"`
	Score       int     `json:"score"`
	Accuracy    float64 `json:"accuracy"`
	WPM         float64 `json:"wpm"`
	MaxCombo    int     `json:"maxCombo"`
	IsCompleted bool    `json:"isCompleted"`
}

// client is a thin HTTP client over the game API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(cfg *Config) *client {
	return &client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *client) createSession(ctx context.Context, levelID int) (sessionView, error) {
	var view sessionView
	err := c.do(ctx, http.MethodPost, "/sessions", map[string]int{"levelId": levelID}, &view)
	return view, err
}

func (c *client) getSession(ctx context.Context, id string) (sessionView, error) {
	var view sessionView
	err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &view)
	return view, err
}

func (c *client) sendKey(ctx context.Context, id, key string) (hitResponse, error) {
	var res hitResponse
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/keys", map[string]string{"key": key}, &res)
	return res, err
}

func (c *client) endSession(ctx context.Context, id string) (completedSession, error) {
	var rec completedSession
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/end", nil, &rec)
	return rec, err
}
