package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// RegistryClient mirrors resource.Store mutations to an NMOS
// registration API. It is a seam purely for testing the Agent's retry
// and heartbeat logic without a real registry; HTTPRegistryClient is
// the production implementation.
type RegistryClient interface {
	Register(ctx context.Context, base string, typ resource.Type, body map[string]interface{}) error
	Unregister(ctx context.Context, base string, typ resource.Type, id string) error
	Heartbeat(ctx context.Context, base string, nodeID string) error
}

// HTTPRegistryClient drives the IS-04 Registration API's resource and
// health endpoints, grounded on the teacher's web.Server client-side
// HTTP handling idiom (explicit timeout, status-code classification).
type HTTPRegistryClient struct {
	Client *http.Client
}

// NewHTTPRegistryClient returns a client with a bounded per-call
// timeout, since a wedged registry must not stall the heartbeat loop
// indefinitely.
func NewHTTPRegistryClient() *HTTPRegistryClient {
	return &HTTPRegistryClient{Client: &http.Client{Timeout: 5 * time.Second}}
}

func (c *HTTPRegistryClient) Register(ctx context.Context, base string, typ resource.Type, body map[string]interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type": string(typ),
		"data": body,
	})
	if err != nil {
		return fmt.Errorf("discovery: marshal registration body: %w", err)
	}

	url := base + "/x-nmos/registration/v1.3/resource"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discovery: build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", typ, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discovery: register %s: registry returned %d", typ, resp.StatusCode)
	}
	return nil
}

func (c *HTTPRegistryClient) Unregister(ctx context.Context, base string, typ resource.Type, id string) error {
	url := fmt.Sprintf("%s/x-nmos/registration/v1.3/resource/%s/%s", base, typ, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("discovery: build unregister request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("discovery: unregister %s %s: %w", typ, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("discovery: unregister %s %s: registry returned %d", typ, id, resp.StatusCode)
	}
	return nil
}

func (c *HTTPRegistryClient) Heartbeat(ctx context.Context, base string, nodeID string) error {
	url := fmt.Sprintf("%s/x-nmos/registration/v1.3/health/nodes/%s", base, nodeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("discovery: build heartbeat request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("discovery: heartbeat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discovery: heartbeat: registry returned %d", resp.StatusCode)
	}
	return nil
}
