package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDeployer_PostsToResources(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			ID     string         `json:"deployment_id"`
			Config map[string]any `json:"config"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dep1", body.ID)
		assert.Contains(t, body.Config, "app")

		if r.URL.Path == "/endpoints" {
			writeJSON(w, http.StatusOK, DeployResult{EndpointName: "demo", ModelName: "main.agents.demo"})
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := &HTTPDeployer{URL: srv.URL + "/", Token: "secret"}
	config := map[string]any{"app": map[string]any{"name": "demo"}}

	require.NoError(t, d.CreateAgent(context.Background(), "dep1", config))
	res, err := d.DeployAgent(context.Background(), "dep1", config)
	require.NoError(t, err)
	assert.Equal(t, "demo", res.EndpointName)
	assert.Equal(t, []string{"/agents", "/endpoints"}, paths)
}

func TestHTTPDeployer_ReportsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "schema catalog does not exist"})
	}))
	defer srv.Close()

	d := &HTTPDeployer{URL: srv.URL}
	err := d.CreateAgent(context.Background(), "dep1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema catalog does not exist")
}
