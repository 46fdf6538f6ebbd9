package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_SEEN_POSTS_KEY = "blogs:seen_posts"
	// Seen keys expire after a week; the conditional insert in DynamoDB is
	// the authoritative dedup, the cache only saves write attempts.
	VALKEY_SEEN_TTL_SECONDS = 7 * 24 * 3600
)

// ValkeyClient is a best-effort cache of already-ingested post keys, sitting
// in front of the store's conditional insert.
type ValkeyClient struct {
	Client valkey.Client
}

func NewValkeyClient() (*ValkeyClient, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{os.Getenv("VALKEY_INIT_ADDRESS")},
		Password:         os.Getenv("VALKEY_PASSWORD"),
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if os.Getenv("VALKEY_TLS") == "true" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if res := client.Do(ctx, client.B().Ping().Build()); res.Error() != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", res.Error())
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return &ValkeyClient{Client: client}, nil
}

func (vc *ValkeyClient) Close() {
	vc.Client.Close()
}

// IsBlogSeen reports whether sortKey was already ingested. Any cache failure
// reads as "not seen" so the store stays the source of truth.
func (vc *ValkeyClient) IsBlogSeen(ctx context.Context, sortKey string) bool {
	res := vc.doWithRetry(ctx, vc.Client.B().Sismember().Key(VALKEY_SEEN_POSTS_KEY).Member(sortKey).Build(), 3)
	ok, err := res.AsBool()
	if err != nil {
		return false
	}
	return ok
}

func (vc *ValkeyClient) MarkBlogSeen(ctx context.Context, sortKey string) error {
	completed := []valkey.Completed{
		vc.Client.B().Sadd().Key(VALKEY_SEEN_POSTS_KEY).Member(sortKey).Build(),
		vc.Client.B().Expire().Key(VALKEY_SEEN_POSTS_KEY).Seconds(VALKEY_SEEN_TTL_SECONDS).Build(),
	}

	for _, res := range vc.Client.DoMulti(ctx, completed...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("[ValkeyClient] failed to mark post as seen: %w", err)
		}
	}
	return nil
}

func (vc *ValkeyClient) doWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		if result.Error() == nil || !isConnectionError(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}
	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
