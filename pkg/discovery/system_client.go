package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SystemAPIClient fetches the IS-09 system-global resource from a
// System API (spec section 4.7 "inward side").
type SystemAPIClient interface {
	FetchSystemGlobal(ctx context.Context, base string) (map[string]interface{}, error)
}

// HTTPSystemAPIClient is the production implementation, grounded on
// the same request idiom as HTTPRegistryClient.
type HTTPSystemAPIClient struct {
	Client *http.Client
}

func NewHTTPSystemAPIClient() *HTTPSystemAPIClient {
	return &HTTPSystemAPIClient{Client: &http.Client{Timeout: 5 * time.Second}}
}

func (c *HTTPSystemAPIClient) FetchSystemGlobal(ctx context.Context, base string) (map[string]interface{}, error) {
	url := base + "/x-nmos/system/v1.0/global"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: build system-global request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery: fetch system-global: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("discovery: fetch system-global: system api returned %d", resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("discovery: decode system-global: %w", err)
	}
	return raw, nil
}
