package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DeployResult is what a finished deployment produced.
type DeployResult struct {
	EndpointName string `json:"endpoint_name"`
	ModelName    string `json:"model_name"`
	Message      string `json:"message"`
}

// Deployer turns a sanitized configuration into a served agent. CreateAgent
// registers the model; DeployAgent puts it behind an endpoint.
type Deployer interface {
	CreateAgent(ctx context.Context, id string, config map[string]any) error
	DeployAgent(ctx context.Context, id string, config map[string]any) (DeployResult, error)
}

// HTTPDeployer drives an external deployment service. It posts to
// {URL}/agents and {URL}/endpoints.
type HTTPDeployer struct {
	URL    string
	Token  string
	Client *http.Client
}

// CreateAgent implements Deployer.
func (d *HTTPDeployer) CreateAgent(ctx context.Context, id string, config map[string]any) error {
	return d.post(ctx, "agents", id, config, nil)
}

// DeployAgent implements Deployer.
func (d *HTTPDeployer) DeployAgent(ctx context.Context, id string, config map[string]any) (DeployResult, error) {
	var res DeployResult
	if err := d.post(ctx, "endpoints", id, config, &res); err != nil {
		return DeployResult{}, err
	}
	return res, nil
}

func (d *HTTPDeployer) post(ctx context.Context, resource, id string, config map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"deployment_id": id, "config": config})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	url := strings.TrimRight(d.URL, "/") + "/" + resource
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", resource, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", resource, err)
	}
	if resp.StatusCode/100 != 2 {
		var e ErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resource, e.Error)
		}
		return fmt.Errorf("%s: deployer returned %s", resource, resp.Status)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", resource, err)
		}
	}
	return nil
}
