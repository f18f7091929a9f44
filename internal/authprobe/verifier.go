package authprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPVerifier verifies tokens against the identity provider's user endpoint.
// The request is authorized with the caller's own token, never an elevated
// service credential, so an unrelated token cannot spoof verification.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier creates a verifier for the given verify endpoint URL.
func NewHTTPVerifier(url string) *HTTPVerifier {
	return &HTTPVerifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Verify calls the identity provider and returns the principal ID the token
// belongs to. Any transport error, non-200 status, or malformed response is
// returned as an error; callers treat all of them as "anonymous".
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	if body.ID == "" {
		return "", fmt.Errorf("verify response missing principal id")
	}
	return body.ID, nil
}
