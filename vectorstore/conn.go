package vectorstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
)

// Config holds the Milvus connection settings.
type Config struct {
	URI        string
	Token      string
	Collection string
}

// ConfigFromEnv reads the Milvus connection settings from the environment.
func ConfigFromEnv() Config {
	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = DefaultCollection
	}
	return Config{
		URI:        os.Getenv("MILVUS_URI"),
		Token:      os.Getenv("MILVUS_TOKEN"),
		Collection: collection,
	}
}

var (
	connMu sync.Mutex
	conn   client.Client
)

// Connect returns the process-wide Milvus client, establishing the
// connection on first use. It is safe for concurrent initializers: callers
// racing to connect serialize on the handle, and repeat calls return the
// existing connection.
func Connect(ctx context.Context, cfg Config) (client.Client, error) {
	connMu.Lock()
	defer connMu.Unlock()

	if conn != nil {
		return conn, nil
	}

	c, err := client.NewClient(ctx, client.Config{
		Address: cfg.URI,
		APIKey:  cfg.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	conn = c
	return conn, nil
}
