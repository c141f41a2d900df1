package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiClient is a thin HTTP client for the responderd API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

// getClientFunc can be overridden in tests to inject a fake server.
var getClientFunc = defaultGetClient

func getClient() *apiClient {
	return getClientFunc()
}

func defaultGetClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// get performs a GET and decodes the JSON response into dst.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, dst any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, dst)
}

// post performs a POST with a JSON body and decodes the response into dst.
func (c *apiClient) post(ctx context.Context, path string, body, dst any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dst)
}

func (c *apiClient) do(req *http.Request, dst any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Path)
	}

	if dst == nil {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
