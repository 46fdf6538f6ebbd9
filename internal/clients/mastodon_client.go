package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// MastodonClient posts statuses to a Mastodon instance with a static bearer
// token.
type MastodonClient struct {
	Client  *http.Client
	BaseURL string
}

func NewMastodonClient(baseURL, accessToken string) *MastodonClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(context.Background(), src)
	client.Timeout = 30 * time.Second

	return &MastodonClient{
		Client:  client,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PostStatus publishes a status and returns its identifier.
func (m *MastodonClient) PostStatus(ctx context.Context, status string) (string, error) {
	params := url.Values{}
	params.Set("status", status)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.BaseURL+"/api/v1/statuses", strings.NewReader(params.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := m.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("[MastodonClient] Post status request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("[MastodonClient] Failed to read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("[MastodonClient] Post status failed with status code %d: %s",
			res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("[MastodonClient] Failed to parse response: %w", err)
	}

	slog.Info("[MastodonClient] Status posted", slog.String("status_id", parsed.ID))
	return parsed.ID, nil
}
