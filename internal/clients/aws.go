package clients

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadAWSConfig loads the shared AWS configuration once per process. Each
// binary builds exactly the service clients it needs from it; there are no
// package-level client singletons.
func LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	slog.Info("[AWSClient] Initializing AWS Config...")

	var opts []func(*config.LoadOptions) error
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	slog.Info("[AWSClient] AWS Config Initialized")
	return cfg, nil
}

// endpointOverride returns the local endpoint override, if any. Used when
// running against DynamoDB Local or LocalStack.
func endpointOverride() *string {
	if ep := os.Getenv("AWS_ENDPOINT"); ep != "" {
		return aws.String(ep)
	}
	return nil
}

func NewDynamoDBClient(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = endpointOverride()
	})
}

func NewDynamoDBStreamsClient(cfg aws.Config) *dynamodbstreams.Client {
	return dynamodbstreams.NewFromConfig(cfg, func(o *dynamodbstreams.Options) {
		o.BaseEndpoint = endpointOverride()
	})
}

func NewSQSClient(cfg aws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		o.BaseEndpoint = endpointOverride()
	})
}

func NewSecretsManagerClient(cfg aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg)
}

func NewSSMClient(cfg aws.Config) *ssm.Client {
	return ssm.NewFromConfig(cfg)
}
