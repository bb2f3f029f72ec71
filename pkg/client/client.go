package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to a boardrag server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	obs     *observer

	mu       sync.Mutex
	keywords []string // lower-cased, cached after the first successful Games call
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("boardrag: invalid base url %q", baseURL)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, obs: obs}, nil
}

// Query asks one question.
func (c *Client) Query(ctx context.Context, question string) (res *QueryResult, err error) {
	defer func(start time.Time) { c.obs.observe("query", start, err) }(time.Now())

	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("boardrag: encode request: %w", err)
	}
	res = &QueryResult{}
	if _, err = c.do(ctx, http.MethodPost, "/query", body, res, false); err != nil {
		return nil, err
	}
	return res, nil
}

// Health fetches the health report. An unhealthy service still yields a report, not an error.
func (c *Client) Health(ctx context.Context) (h *HealthStatus, err error) {
	defer func(start time.Time) { c.obs.observe("health", start, err) }(time.Now())

	h = &HealthStatus{}
	if _, err = c.do(ctx, http.MethodGet, "/health", nil, h, true); err != nil {
		return nil, err
	}
	return h, nil
}

// Games lists the supported games.
func (c *Client) Games(ctx context.Context) (games []Game, err error) {
	defer func(start time.Time) { c.obs.observe("games", start, err) }(time.Now())

	var env gamesEnvelope
	if _, err = c.do(ctx, http.MethodGet, "/games", nil, &env, false); err != nil {
		return nil, err
	}

	var kws []string
	for _, g := range env.Games {
		for _, kw := range g.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
	}
	c.mu.Lock()
	c.keywords = kws
	c.mu.Unlock()

	return env.Games, nil
}

// IsBoardGameQuestion reports whether the question mentions a keyword of any supported game.
// The keyword table is fetched from the server once and cached.
func (c *Client) IsBoardGameQuestion(ctx context.Context, question string) (bool, error) {
	c.mu.Lock()
	kws := c.keywords
	c.mu.Unlock()

	if kws == nil {
		if _, err := c.Games(ctx); err != nil {
			return false, err
		}
		c.mu.Lock()
		kws = c.keywords
		c.mu.Unlock()
	}

	q := strings.ToLower(question)
	for _, kw := range kws {
		if strings.Contains(q, kw) {
			return true, nil
		}
	}
	return false, nil
}

// Messages returned by ProcessMessage when the question is not routed to the service.
const (
	OffTopicReply = "I can help with questions about Monopoly and Ticket to Ride. " +
		"For other topics, I'll respond as a general AI assistant."
	errorReplyPrefix = "I encountered an error accessing the game database: "
)

// ProcessMessage answers chat messages about supported games and declines the rest,
// always returning text suitable for a chat reply.
func (c *Client) ProcessMessage(ctx context.Context, message string) string {
	ok, err := c.IsBoardGameQuestion(ctx, message)
	if err != nil {
		return errorReplyPrefix + err.Error()
	}
	if !ok {
		return OffTopicReply
	}
	res, err := c.Query(ctx, message)
	if err != nil {
		return errorReplyPrefix + err.Error()
	}
	return FormatAnswer(res)
}

// FormatAnswer renders the answer followed by at most three source ids.
func FormatAnswer(res *QueryResult) string {
	var sb strings.Builder
	sb.WriteString(res.Answer)
	if len(res.Sources) == 0 {
		return sb.String()
	}
	sb.WriteString("\n\n**Sources:**\n")
	for _, s := range res.Sources[:min(3, len(res.Sources))] {
		fmt.Fprintf(&sb, "• %s (score %.2f)\n", s.ID, s.Score)
	}
	return sb.String()
}

// do sends a request and decodes a JSON reply into out. With acceptAnyStatus the
// body is decoded regardless of status, for endpoints that report failure in-band.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, acceptAnyStatus bool) (int, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, fmt.Errorf("boardrag: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("boardrag: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 && !acceptAnyStatus {
		return resp.StatusCode, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if resp.StatusCode/100 != 2 {
			return resp.StatusCode, &APIError{StatusCode: resp.StatusCode}
		}
		return resp.StatusCode, fmt.Errorf("boardrag: decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Code != "" {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
