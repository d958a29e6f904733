package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "MelodyDataset/Pipeline"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      *cloudwatch.Client
	enabled     bool
	environment string
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

// Enabled reports whether metrics are sent
func (m *Client) Enabled() bool {
	return m != nil && m.enabled
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if !m.Enabled() {
		return
	}

	go func() {
		ctx := context.Background()
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := []types.Dimension{
			{
				Name:  aws.String("Endpoint"),
				Value: aws.String(endpoint),
			},
			m.environmentDimension(),
		}

		if err := m.putMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record %s metric: %v", metricName, err)
		}

		latencyMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "APILatency", latencyMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record APILatency metric: %v", err)
		}
	}()
}

// RecordSongOutcome counts one preprocessed song by outcome (accepted, key_failure, ...)
func (m *Client) RecordSongOutcome(outcome string) {
	if !m.Enabled() {
		return
	}

	go func() {
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Outcome"),
				Value: aws.String(outcome),
			},
			m.environmentDimension(),
		}
		if err := m.putMetric(context.Background(), "Songs", 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record Songs metric: %v", err)
		}
	}()
}

// RecordStageDuration records how long a pipeline stage took
func (m *Client) RecordStageDuration(stage string, duration time.Duration, success bool) {
	if !m.Enabled() {
		return
	}

	go func() {
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Stage"),
				Value: aws.String(stage),
			},
			{
				Name:  aws.String("Success"),
				Value: aws.String(boolToString(success)),
			},
			m.environmentDimension(),
		}

		durationMs := float64(duration.Milliseconds())
		if err := m.putMetric(context.Background(), "StageDuration", durationMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record StageDuration metric: %v", err)
		}
	}()
}

// RecordCorpusSize records the size of the assembled corpus and its vocabulary
func (m *Client) RecordCorpusSize(tokens, vocabularySize, examples int) {
	if !m.Enabled() {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := []types.Dimension{m.environmentDimension()}

		values := []struct {
			name  string
			value int
		}{
			{"CorpusTokens", tokens},
			{"VocabularySize", vocabularySize},
			{"TrainingExamples", examples},
		}
		for _, v := range values {
			if err := m.putMetric(ctx, v.name, float64(v.value), types.StandardUnitCount, dimensions); err != nil {
				log.Printf("Failed to record %s metric: %v", v.name, err)
			}
		}
	}()
}

func (m *Client) environmentDimension() types.Dimension {
	return types.Dimension{
		Name:  aws.String("Environment"),
		Value: aws.String(m.environment),
	}
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	_ context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	// Create context with timeout for CloudWatch call
	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
