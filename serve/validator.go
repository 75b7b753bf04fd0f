package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ValidationResult is the outcome of a schema validation.
type ValidationResult struct {
	Valid       bool              `json:"isValid"`
	Errors      []ValidationIssue `json:"errors"`
	SchemaError string            `json:"schemaError,omitempty"`
	Status      string            `json:"status,omitempty"`
}

// ValidationIssue is a single schema violation.
type ValidationIssue struct {
	Path       string `json:"path"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	SchemaPath string `json:"schema_path,omitempty"`
}

// Validator checks a sanitized configuration against the application schema.
type Validator interface {
	Validate(ctx context.Context, config map[string]any) (ValidationResult, error)
}

// HTTPValidator posts the configuration to an external schema service.
type HTTPValidator struct {
	URL    string
	Client *http.Client
}

// Validate implements Validator.
func (v *HTTPValidator) Validate(ctx context.Context, config map[string]any) (ValidationResult, error) {
	body, err := json.Marshal(map[string]any{"config": config})
	if err != nil {
		return ValidationResult{}, fmt.Errorf("encode config: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(body))
	if err != nil {
		return ValidationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("call validator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ValidationResult{}, fmt.Errorf("read validator response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return ValidationResult{}, fmt.Errorf("validator returned %s: %s", resp.Status, truncate(string(raw), 200))
	}

	// The service answers with either "valid" or "isValid".
	var wire struct {
		Valid       *bool             `json:"valid"`
		IsValid     *bool             `json:"isValid"`
		Errors      []ValidationIssue `json:"errors"`
		SchemaError string            `json:"schemaError"`
		Status      string            `json:"status"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ValidationResult{}, fmt.Errorf("decode validator response: %w", err)
	}

	res := ValidationResult{
		Errors:      wire.Errors,
		SchemaError: wire.SchemaError,
		Status:      wire.Status,
	}
	switch {
	case wire.IsValid != nil:
		res.Valid = *wire.IsValid
	case wire.Valid != nil:
		res.Valid = *wire.Valid
	default:
		res.Valid = len(wire.Errors) == 0
	}
	if res.Errors == nil {
		res.Errors = []ValidationIssue{}
	}
	return res, nil
}

// validateConfig runs v over config. Empty and barely started documents are
// reported valid without a round trip. A missing or unreachable validator
// skips validation rather than blocking the user. A root that is not a
// mapping is reported as a type error without calling the validator.
func validateConfig(ctx context.Context, v Validator, config any) ValidationResult {
	m, ok := config.(map[string]any)
	if !ok {
		return ValidationResult{Errors: []ValidationIssue{{
			Path:    "",
			Message: rootShapeError(config),
			Type:    "type",
		}}}
	}
	return validateMapping(ctx, v, m)
}

func validateMapping(ctx context.Context, v Validator, config map[string]any) ValidationResult {
	if len(config) == 0 {
		return ValidationResult{Valid: true, Errors: []ValidationIssue{}}
	}
	_, hasAgents := config["agents"]
	_, hasApp := config["app"]
	_, hasTools := config["tools"]
	if !hasAgents && !hasApp && !hasTools {
		return ValidationResult{Valid: true, Errors: []ValidationIssue{}, Status: "incomplete"}
	}
	if v == nil {
		return ValidationResult{Valid: true, Errors: []ValidationIssue{}, Status: "skipped", SchemaError: "no validator configured"}
	}

	res, err := v.Validate(ctx, config)
	if err != nil {
		slog.Warn("schema validation skipped", "error", err)
		return ValidationResult{Valid: true, Errors: []ValidationIssue{}, Status: "skipped", SchemaError: err.Error()}
	}
	return res
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
