// Package janus is a minimal client for the Janus gateway's plain HTTP
// transport: one POST endpoint per session/handle plus a long-poll GET that
// delivers asynchronous events.
package janus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

const (
	echoTestPlugin = "janus.plugin.echotest"
	destroyTimeout = 5 * time.Second
	pollRetryDelay = time.Second
)

// Event is one asynchronous gateway event for a session. Jsep is non-nil
// when the event carries a session description (the echo answer).
type Event struct {
	Session uint64
	Jsep    *webrtc.SessionDescription
}

type Client struct {
	baseURL string
	http    *http.Client
}

type ClientConfig struct {
	// BaseURL is the gateway root, e.g. http://localhost:8088/janus.
	BaseURL string
	// HTTPClient must not carry a global timeout: event delivery relies on
	// long-poll requests that are bounded per request by context instead.
	HTTPClient *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("janus base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid janus base URL %q", cfg.BaseURL)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{baseURL: cfg.BaseURL, http: cfg.HTTPClient}, nil
}

type request struct {
	Janus       string                     `json:"janus"`
	Transaction string                     `json:"transaction"`
	Plugin      string                     `json:"plugin,omitempty"`
	Body        interface{}                `json:"body,omitempty"`
	Jsep        *webrtc.SessionDescription `json:"jsep,omitempty"`
}

type response struct {
	Janus       string `json:"janus"`
	Transaction string `json:"transaction"`
	Data        struct {
		ID uint64 `json:"id"`
	} `json:"data"`
	Jsep  *webrtc.SessionDescription `json:"jsep,omitempty"`
	Error *apiError                  `json:"error,omitempty"`
}

type apiError struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func (c *Client) CreateSession(ctx context.Context) (uint64, error) {
	resp, err := c.post(ctx, "", request{Janus: "create"})
	if err != nil {
		return 0, err
	}
	if resp.Data.ID == 0 {
		return 0, errors.New("janus: create returned no session id")
	}
	return resp.Data.ID, nil
}

func (c *Client) AttachEcho(ctx context.Context, session uint64) (uint64, error) {
	path := fmt.Sprintf("/%d", session)
	resp, err := c.post(ctx, path, request{Janus: "attach", Plugin: echoTestPlugin})
	if err != nil {
		return 0, err
	}
	if resp.Data.ID == 0 {
		return 0, errors.New("janus: attach returned no handle id")
	}
	return resp.Data.ID, nil
}

func (c *Client) SendOffer(ctx context.Context, session, handle uint64, offer webrtc.SessionDescription) error {
	path := fmt.Sprintf("/%d/%d", session, handle)
	_, err := c.post(ctx, path, request{
		Janus: "message",
		Body:  map[string]bool{"audio": true, "video": true},
		Jsep:  &offer,
	})
	return err
}

// DestroySession uses its own deadline so teardown still runs after the
// request context that triggered it has already expired.
func (c *Client) DestroySession(session uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	defer cancel()
	_, err := c.post(ctx, fmt.Sprintf("/%d", session), request{Janus: "destroy"})
	return err
}

// Subscribe long-polls the session's event endpoint on its own goroutine and
// invokes onEvent for every event until ctx is done. Poll errors back off
// briefly instead of killing the loop.
func (c *Client) Subscribe(ctx context.Context, session uint64, onEvent func(Event)) {
	go func() {
		for ctx.Err() == nil {
			ev, err := c.pollEvent(ctx, session)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(pollRetryDelay):
				}
				continue
			}
			if ev != nil {
				onEvent(*ev)
			}
		}
	}()
}

func (c *Client) pollEvent(ctx context.Context, session uint64) (*Event, error) {
	u := fmt.Sprintf("%s/%d?maxev=1", c.baseURL, session)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("janus: event poll returned status %d", resp.StatusCode)
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("janus: %s (code %d)", out.Error.Reason, out.Error.Code)
	}
	if out.Janus == "keepalive" {
		return nil, nil
	}
	return &Event{Session: session, Jsep: out.Jsep}, nil
}

func (c *Client) post(ctx context.Context, path string, body request) (*response, error) {
	body.Transaction = uuid.NewString()
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("janus: %s returned status %d", body.Janus, resp.StatusCode)
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("janus: %s (code %d)", out.Error.Reason, out.Error.Code)
	}
	return &out, nil
}
