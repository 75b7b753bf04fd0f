package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

// DefaultTemplateBaseURL serves raw file contents of GitHub repositories.
const DefaultTemplateBaseURL = "https://raw.githubusercontent.com"

const maxTemplateSize = 2 << 20

// ErrBadTemplatePath is returned for template names that escape the
// configured directory or are not YAML files.
var ErrBadTemplatePath = errors.New("invalid template path")

// TemplateSource is the repository holding starter configurations.
type TemplateSource struct {
	Repo    string `json:"repo"`
	Branch  string `json:"branch"`
	Path    string `json:"path"`
	BaseURL string `json:"-"`

	Client *http.Client `json:"-"`
}

// URL returns the raw download URL of the template called name.
func (t *TemplateSource) URL(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if name == "" || clean != strings.TrimPrefix(name, "/") || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadTemplatePath, name)
	}
	if ext := path.Ext(clean); ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("%w: %q is not a yaml file", ErrBadTemplatePath, name)
	}

	base := t.BaseURL
	if base == "" {
		base = DefaultTemplateBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + path.Join(t.Repo, t.Branch, t.Path, clean), nil
}

// Fetch downloads the template called name.
func (t *TemplateSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	url, err := t.URL(name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch template %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("template %s: %w", name, ErrNotFound)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch template %s: %s", name, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateSize+1))
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	if len(body) > maxTemplateSize {
		return nil, fmt.Errorf("template %s exceeds %d bytes", name, maxTemplateSize)
	}
	return body, nil
}
