package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spacesedan/blogrelay/internal/models"
)

const (
	FEED_API_URL = "https://aws.amazon.com/api/dirs/items/search" +
		"?item.directoryId=blog-posts&sort_by=item.additionalFields.createdDate" +
		"&sort_order=desc&item.locale=en_US"
	DEFAULT_PAGE_SIZE = 10
)

// FeedClient fetches pages of the upstream blog search API, newest first.
type FeedClient struct {
	Client   *http.Client
	BaseURL  string
	PageSize int
}

func NewFeedClient(pageSize int) *FeedClient {
	if pageSize <= 0 {
		pageSize = DEFAULT_PAGE_SIZE
	}
	return &FeedClient{
		Client:   &http.Client{Timeout: 30 * time.Second},
		BaseURL:  FEED_API_URL,
		PageSize: pageSize,
	}
}

// FetchPage returns one page of feed results. Throttling and server errors
// are retried with exponential backoff; anything else surfaces to the caller.
func (f *FeedClient) FetchPage(ctx context.Context, page int) (*models.FeedSearchResponse, error) {
	url := fmt.Sprintf("%s&size=%d&page=%d", f.BaseURL, f.PageSize, page)

	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := f.Client.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("[FeedClient] Request failed, retrying...",
				slog.Int("page", page),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		} else {
			response, retryable, err := f.handleResponse(res, page)
			if response != nil {
				return response, nil
			}
			if !retryable {
				return nil, err
			}
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}
	}

	return nil, fmt.Errorf("[FeedClient] Failed to fetch page %d after retries: %w", page, lastErr)
}

func (f *FeedClient) handleResponse(res *http.Response, page int) (*models.FeedSearchResponse, bool, error) {
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, false, fmt.Errorf("[FeedClient] Failed to read response body: %w", err)
		}
		var response models.FeedSearchResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, false, fmt.Errorf("[FeedClient] Failed to parse JSON response: %w", err)
		}
		slog.Debug("[FeedClient] Fetched feed page",
			slog.Int("page", page),
			slog.Int("items", len(response.Items)))
		return &response, false, nil
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, res.Body)
		slog.Warn("[FeedClient] Upstream not ready, retrying...",
			slog.Int("page", page),
			slog.Int("status", res.StatusCode))
		return nil, true, fmt.Errorf("[FeedClient] Upstream returned status %d", res.StatusCode)
	default:
		return nil, false, fmt.Errorf("[FeedClient] Unexpected status %d for page %d", res.StatusCode, page)
	}
}
