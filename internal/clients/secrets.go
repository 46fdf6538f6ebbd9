package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// TwitterCredentials is the four-field OAuth1 bundle stored in Secrets
// Manager. Fetched once per process, never per message.
type TwitterCredentials struct {
	ConsumerKey       string `json:"consumer_key"`
	ConsumerSecret    string `json:"consumer_secret"`
	AccessTokenKey    string `json:"access_token_key"`
	AccessTokenSecret string `json:"access_token_secret"`
}

func FetchTwitterCredentials(ctx context.Context, client *secretsmanager.Client, secretID string) (*TwitterCredentials, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("[Secrets] Failed to fetch Twitter secret: %w", err)
	}

	var creds TwitterCredentials
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &creds); err != nil {
		return nil, fmt.Errorf("[Secrets] Failed to parse Twitter secret: %w", err)
	}

	slog.Info("[Secrets] Twitter credentials loaded")
	return &creds, nil
}

// FetchMastodonToken reads the decrypted Mastodon access token from the SSM
// Parameter Store.
func FetchMastodonToken(ctx context.Context, client *ssm.Client, parameterName string) (string, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("[Secrets] Failed to fetch Mastodon token: %w", err)
	}

	slog.Info("[Secrets] Mastodon access token loaded")
	return aws.ToString(out.Parameter.Value), nil
}
