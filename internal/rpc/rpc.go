package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/config"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
)

// HTTPClient talks to the management server.
type HTTPClient interface {
	Get(path string, params map[string]interface{}) (*HTTPResponse, error)
	Post(path string, data interface{}) (*HTTPResponse, error)
	Close() error
}

// HTTPConfig locates the management server.
type HTTPConfig struct {
	Address string        // server listening address, host:port
	Timeout time.Duration // per request
}

// DefaultHTTPConfig targets the server address of the loaded configuration.
func DefaultHTTPConfig() *HTTPConfig {
	addr := config.Config.Server.Address
	if addr == "" {
		addr = "127.0.0.1:9950"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return &HTTPConfig{
		Address: addr,
		Timeout: 5 * time.Second,
	}
}

type HTTPResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
	Error      string `json:"error"`
	Code       string `json:"code"`
}

// OK reports a 2xx status.
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals a successful body into v, or returns the server error.
func (r *HTTPResponse) Decode(v interface{}) error {
	if !r.OK() {
		return fmt.Errorf("server returned %d: %s", r.StatusCode, r.Error)
	}
	if v == nil || len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

func buildURL(baseURL, path string, params map[string]interface{}) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")

	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			q.Set(key, fmt.Sprintf("%v", value))
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func serializeData(data interface{}) (io.Reader, error) {
	if data == nil {
		return nil, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}
	return bytes.NewReader(jsonData), nil
}

// deserializeResponse reads the body and, for non-2xx answers, the ErrorResponse it carries.
func deserializeResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if httpResp.OK() {
		return httpResp, nil
	}
	var errBody models.ErrorResponse
	if len(body) == 0 {
		httpResp.Error = resp.Status
	} else if err := json.Unmarshal(body, &errBody); err != nil {
		httpResp.Error = strings.TrimSpace(string(body))
	} else {
		httpResp.Error = errBody.Error
		httpResp.Code = errBody.Code
	}
	if httpResp.Error == "" {
		httpResp.Error = "Unknown error"
	}
	return httpResp, nil
}
