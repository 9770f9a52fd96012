// Package mongo stores slots as documents of a MongoDB collection, one
// document per slot keyed by the slot name.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase = "ledger"
	SlotsCollection = "slots"
)

// ---- Abstractions for Testability ----

// DataStore is the subset of *mongo.Collection the slot uses.
type DataStore interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *driver.SingleResult
	ReplaceOne(
		ctx context.Context,
		filter interface{},
		replacement interface{},
		opts ...*options.ReplaceOptions) (*driver.UpdateResult, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// Collection adapts *mongo.Collection to DataStore.
type Collection struct {
	*driver.Collection
}

// Provider adapts *mongo.Client to CollectionProvider.
type Provider struct {
	client   *driver.Client
	database string
}

func NewProvider(client *driver.Client, database string) *Provider {
	if database == "" {
		database = DefaultDatabase
	}
	return &Provider{client: client, database: database}
}

func (p *Provider) Collection(name string) DataStore {
	return &Collection{p.client.Database(p.database).Collection(name)}
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*driver.Client, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// document is the stored shape of one slot.
type document struct {
	Name      string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type Slot struct {
	coll DataStore
	now  func() time.Time
}

var _ storage.Slot = (*Slot)(nil)

func NewSlot(provider CollectionProvider) *Slot {
	return &Slot{coll: provider.Collection(SlotsCollection), now: time.Now}
}

func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, storage.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("find slot %q: %w", key, err)
	}
	return []byte(doc.Value), nil
}

// Put upserts the slot document.
func (s *Slot) Put(ctx context.Context, key string, value []byte) error {
	doc := document{Name: key, Value: string(value), UpdatedAt: s.now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace slot %q: %w", key, err)
	}
	return nil
}
