// Package client is a typed client for the tiremarket admin API.
//
// The locale used for server-rendered messages is injected with WithLocale and
// sent as Accept-Language on every request, so request construction does not
// depend on ambient state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tiremarket/internal/conflict"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	// Messages carries conflict warnings of a 409 response.
	Messages []string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	locale  conflict.Locale
	token   string
}

type Option func(*Client)

// WithLocale sets the Accept-Language of every request.
func WithLocale(l conflict.Locale) Option { return func(c *Client) { c.locale = l } }

// WithToken sets the bearer token.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		locale:  conflict.LocaleEN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Locale() conflict.Locale { return c.locale }

// newRequest builds a request for path (relative to /api/v1) with the
// client's locale and token applied.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/api/v1" + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", string(c.locale))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error    string   `json:"error"`
			Messages []string `json:"messages"`
		}
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Message = e.Error
			apiErr.Messages = e.Messages
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

// Exception is an agreement exception as returned by the API.
type Exception struct {
	ID                int64   `json:"id"`
	AgreementID       int64   `json:"agreement_id"`
	TireBrandID       *int64  `json:"tire_brand_id"`
	TireDiameter      *string `json:"tire_diameter"`
	CommissionPercent float64 `json:"commission_percent"`
	Note              string  `json:"note"`
	Active            bool    `json:"active"`
}

func (e Exception) Rule() conflict.ExceptionRule {
	return conflict.ExceptionRule{
		ID:       e.ID,
		Brand:    conflict.FromPtr(e.TireBrandID),
		Diameter: conflict.DiameterFromPtr(e.TireDiameter),
		Active:   e.Active,
	}
}

// ListExceptions returns the exceptions of an agreement, only the active
// ones when activeOnly is set.
func (c *Client) ListExceptions(ctx context.Context, agreementID int64, activeOnly bool) ([]Exception, error) {
	var out struct {
		Exceptions []Exception `json:"exceptions"`
	}
	var query url.Values
	if activeOnly {
		query = url.Values{"active": {"true"}}
	}
	path := "/agreements/" + strconv.FormatInt(agreementID, 10) + "/exceptions"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out.Exceptions, nil
}

// ListBrands returns the brand reference data.
func (c *Client) ListBrands(ctx context.Context) ([]conflict.Brand, error) {
	var out struct {
		Brands []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"brands"`
	}
	if err := c.do(ctx, http.MethodGet, "/brands", nil, nil, &out); err != nil {
		return nil, err
	}
	brands := make([]conflict.Brand, 0, len(out.Brands))
	for _, b := range out.Brands {
		brands = append(brands, conflict.Brand{ID: b.ID, Name: b.Name})
	}
	return brands, nil
}

// ListDiameters returns the diameter reference data.
func (c *Client) ListDiameters(ctx context.Context) ([]conflict.Diameter, error) {
	var out struct {
		Diameters []struct {
			Value string `json:"value"`
			Label string `json:"label"`
		} `json:"diameters"`
	}
	if err := c.do(ctx, http.MethodGet, "/diameters", nil, nil, &out); err != nil {
		return nil, err
	}
	diameters := make([]conflict.Diameter, 0, len(out.Diameters))
	for _, d := range out.Diameters {
		diameters = append(diameters, conflict.Diameter{Value: d.Value, Label: d.Label})
	}
	return diameters, nil
}

// Preview is the server's answer to a conflict preview.
type Preview struct {
	Combinations int      `json:"combinations"`
	Messages     []string `json:"messages"`
	Conflicts    []struct {
		RuleID int64 `json:"rule_id"`
	} `json:"conflicts"`
}

// PreviewConflicts asks the server which active exceptions sel would overlap.
func (c *Client) PreviewConflicts(ctx context.Context, agreementID int64, sel conflict.Selection) (Preview, error) {
	body := map[string]any{
		"brand_ids":       nonNil(sel.BrandIDs),
		"diameters":       nonNil(sel.Diameters),
		"exclude_rule_id": sel.ExcludeRuleID,
	}
	var out Preview
	path := "/agreements/" + strconv.FormatInt(agreementID, 10) + "/exceptions/conflicts"
	err := c.do(ctx, http.MethodPost, path, nil, body, &out)
	return out, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
