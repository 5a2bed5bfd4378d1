package config

import (
	"context"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	godotenv.Load()
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// ObariEventTopic returns the topic name for OBARI domain events, or "" when
// event publishing is not configured.
func ObariEventTopic() string {
	return strings.TrimSpace(os.Getenv("OBARI_EVENT_TOPIC"))
}

// GetPubSubClient returns a shared Pub/Sub client. It uses Application Default
// Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	var opts []option.ClientOption
	if credJSON := strings.TrimSpace(os.Getenv("PUBSUB_CREDENTIALS_JSON")); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	pubsubClient = client
	return pubsubClient, nil
}
