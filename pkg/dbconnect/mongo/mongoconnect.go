package mongo

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"contrast_engine/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second
const serverSelectionTimeout = 15 * time.Second

type MongoDatabase struct {
	config.MongoConfig
	client *mongo.Client
	mu     sync.Mutex
}

func NewMongoConnector(mongoConfig config.MongoConfig) *MongoDatabase {
	return &MongoDatabase{MongoConfig: mongoConfig}
}

func (m *MongoDatabase) Connect(ctx context.Context) (*mongo.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	opts := options.Client().
		ApplyURI(m.URI).
		SetServerSelectionTimeout(serverSelectionTimeout)

	var err error
	for i := 0; i < maxRetries; i++ {
		var client *mongo.Client
		client, err = mongo.Connect(ctx, opts)
		if err != nil {
			log.Printf("Failed to connect to Mongo (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		if err = client.Ping(ctx, readpref.Primary()); err != nil {
			log.Printf("Failed to ping Mongo (attempt %d/%d): %v", i+1, maxRetries, err)
			_ = client.Disconnect(ctx)
			time.Sleep(retryDelay)
			continue
		}

		log.Printf("Successfully connected to Mongo: %s/%s", m.Database, m.Collection)
		m.client = client
		return m.client, nil
	}
	return nil, err
}

// StagingCollection returns a handle to the configured staging collection.
func (m *MongoDatabase) StagingCollection() *mongo.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	return m.client.Database(m.Database).Collection(m.Collection)
}

func (m *MongoDatabase) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	return err
}
