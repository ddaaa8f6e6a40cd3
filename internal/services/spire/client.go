package spire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spiresync/internal/logger"
)

const DefaultTimeout = 30 * time.Second

// Credentials identify one Spire company.
type Credentials struct {
	BaseURL     string
	CompanyName string
	Username    string
	Password    string
}

type Client struct {
	baseURL     string
	companyName string
	username    string
	password    string
	httpClient  *http.Client
	logger      *logger.Logger
}

func NewClient(creds Credentials, timeout time.Duration, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(creds.BaseURL, "/"),
		companyName: creds.CompanyName,
		username:    creds.Username,
		password:    creds.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Response is a raw ERP reply before envelope normalization.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do sends one authenticated request. Network failures come back as
// *TransportError; any HTTP reply, whatever its status, is a Response.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (*Response, error) {
	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	method = strings.ToUpper(method)

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	c.logger.Debug("Spire request: %s %s", method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Request performs a call and always answers with an Envelope.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}) Envelope {
	resp, err := c.Do(ctx, method, endpoint, nil, body)
	if err != nil {
		c.logger.Error("Spire %s %s failed: %v", method, endpoint, err)
		return failure(err.Error())
	}
	return Normalize(resp.StatusCode, resp.Body)
}

// call runs a request and returns the envelope data, or an error that is
// either *TransportError or *APIError.
func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (json.RawMessage, error) {
	resp, err := c.Do(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}

	env := Normalize(resp.StatusCode, resp.Body)
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	return env.Data, nil
}

func (c *Client) companyPath(resource string) string {
	return "companies/" + url.PathEscape(c.companyName) + "/" + strings.TrimLeft(resource, "/")
}

// Query validates the parameters and encodes them.
func (p ListParams) Query() (url.Values, error) {
	q := url.Values{}

	start := p.Start
	if start < 0 {
		start = 0
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))

	if f := strings.TrimSpace(p.Filter); f != "" {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(f), &obj); err != nil {
			return nil, ErrInvalidFilter
		}
		q.Set("filter", f)
	}

	if p.UDF {
		q.Set("udf", "1")
	}
	if len(p.Fields) > 0 {
		q.Set("fields", strings.Join(p.Fields, ","))
	}

	return q, nil
}
