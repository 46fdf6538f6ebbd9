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

	"github.com/dghubble/oauth1"
)

const TWITTER_STATUS_UPDATE_URL = "https://api.twitter.com/1.1/statuses/update.json"

// TwitterClient posts statuses with OAuth1 request signing. Timeouts are
// bounded so a stuck call surfaces as a retryable queue failure.
type TwitterClient struct {
	Client    *http.Client
	UpdateURL string
}

func NewTwitterClient(creds *TwitterCredentials) *TwitterClient {
	oauthCfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessTokenKey, creds.AccessTokenSecret)

	client := oauthCfg.Client(context.Background(), token)
	client.Timeout = 30 * time.Second

	return &TwitterClient{
		Client:    client,
		UpdateURL: TWITTER_STATUS_UPDATE_URL,
	}
}

type tweetResponse struct {
	IDStr  string `json:"id_str"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// PostStatus sends a standalone tweet and returns its identifier.
func (t *TwitterClient) PostStatus(ctx context.Context, status string) (string, error) {
	params := url.Values{}
	params.Set("status", status)
	return t.post(ctx, params)
}

// PostReply sends a threaded reply to inReplyToID and returns the new
// tweet's identifier.
func (t *TwitterClient) PostReply(ctx context.Context, status, inReplyToID string) (string, error) {
	params := url.Values{}
	params.Set("status", status)
	params.Set("in_reply_to_status_id", inReplyToID)
	params.Set("auto_populate_reply_metadata", "true")
	return t.post(ctx, params)
}

func (t *TwitterClient) post(ctx context.Context, params url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.UpdateURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("[TwitterClient] Post status request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("[TwitterClient] Failed to read response body: %w", err)
	}

	var parsed tweetResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("[TwitterClient] Failed to parse response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		errStrs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			errStrs = append(errStrs, fmt.Sprintf("%d: %s", e.Code, e.Message))
		}
		return "", fmt.Errorf("[TwitterClient] Post status failed with status code %d. Errors: [%s]",
			res.StatusCode, strings.Join(errStrs, ", "))
	}

	slog.Info("[TwitterClient] Status posted", slog.String("tweet_id", parsed.IDStr))
	return parsed.IDStr, nil
}
