package rpc

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
)

type httpClient struct {
	config  *HTTPConfig
	baseURL string
	client  *http.Client
}

/**
 * Create new HTTP client for the management server
 * @param {HTTPConfig} config - HTTP client configuration, nil for the default
 * @returns {HTTPClient} HTTP client interface
 * @example
 * client := NewHTTPClient(nil)
 * defer client.Close()
 * resp, err := client.Get("/api/v1/nodes", nil)
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	return &httpClient{
		config:  config,
		baseURL: "http://" + config.Address,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodGet, path, params, nil)
}

func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	return c.do(http.MethodPost, path, nil, body)
}

func (c *httpClient) do(method, path string, params map[string]interface{}, body io.Reader) (*HTTPResponse, error) {
	url, err := buildURL(c.baseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending %s request to %s", method, url)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return deserializeResponse(resp)
}

func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
