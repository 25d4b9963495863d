// Package mongodb connects the order service to its MongoDB deployment.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Config holds the order database connection settings.
type Config struct {
	URI            string
	Database       string
	ReplicaSet     string
	AppName        string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// DefaultConfig returns settings for a local development deployment.
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "marketplace",
		AppName:        "order-service",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    64,
		MinPoolSize:    4,
	}
}

// Client owns the driver connection and the order database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewClient connects and verifies the connection with a ping. Order writes
// run in transactions that stage outbox events, so reads and writes both use
// majority concern.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	opts := options.Client().
		ApplyURI(config.URI).
		SetAppName(config.AppName).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetWriteConcern(writeconcern.Majority()).
		SetReadConcern(readconcern.Majority()).
		SetRetryWrites(true)

	if config.ReplicaSet != "" {
		opts.SetReplicaSet(config.ReplicaSet)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(config.Database),
	}, nil
}

// Database returns the order database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Close disconnects from the deployment.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck pings the primary. Used by the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}
