package memberapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client talks to a member API served over HTTP, such as NewHandler.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("member api url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) ListIDCards(ctx context.Context, memberID string) (IDList, error) {
	var out IDList
	err := c.get(ctx, "/id-list", url.Values{"member_id": {memberID}}, &out)
	return out, err
}

func (c *Client) IDCardStatus(ctx context.Context, cardID string) (IDCardStatus, error) {
	var out IDCardStatus
	err := c.get(ctx, "/id-status", url.Values{"id": {cardID}}, &out)
	return out, err
}

func (c *Client) CometsData(ctx context.Context, cardID string) (CometsData, error) {
	var out CometsData
	err := c.get(ctx, "/comets-data", url.Values{"id": {cardID}}, &out)
	return out, err
}

func (c *Client) RequestNewIDCard(ctx context.Context, memberID, reason string) (CardRequest, error) {
	var out CardRequest
	err := c.post(ctx, "/new-id-card-request", map[string]string{
		"member_id": memberID,
		"reason":    reason,
	}, &out)
	return out, err
}

func (c *Client) MemberBenefits(ctx context.Context, memberID, planType string) (Benefits, error) {
	var out Benefits
	err := c.get(ctx, "/member-benefits", url.Values{"member_id": {memberID}, "plan_type": {planType}}, &out)
	return out, err
}

func (c *Client) DentalCoverage(ctx context.Context, memberID string) (DentalCoverage, error) {
	var out DentalCoverage
	err := c.get(ctx, "/dental-coverage", url.Values{"member_id": {memberID}}, &out)
	return out, err
}

func (c *Client) MemberStatus(ctx context.Context, memberID string) (MemberStatus, error) {
	var out MemberStatus
	err := c.get(ctx, "/member-status", url.Values{"member_id": {memberID}}, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build member api request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal member api request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build member api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var body errorBody
		_ = json.Unmarshal(raw, &body)
		msg := strings.TrimSpace(body.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		case resp.StatusCode == http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
		default:
			return fmt.Errorf("%w: http status=%d %s", ErrUnavailable, resp.StatusCode, msg)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
