package mongo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ledger/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mock for DataStore interface.
type mockDataStore struct {
	findOneFunc    func(ctx context.Context, filter interface{}) *driver.SingleResult
	replaceOneFunc func(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*driver.UpdateResult, error)
}

func (m *mockDataStore) FindOne(ctx context.Context, filter interface{}, _ ...*options.FindOneOptions) *driver.SingleResult {
	if m.findOneFunc != nil {
		return m.findOneFunc(ctx, filter)
	}
	return driver.NewSingleResultFromDocument(bson.D{}, driver.ErrNoDocuments, nil)
}

func (m *mockDataStore) ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*driver.UpdateResult, error) {
	if m.replaceOneFunc != nil {
		return m.replaceOneFunc(ctx, filter, replacement, opts...)
	}
	return &driver.UpdateResult{}, nil
}

// Mock for CollectionProvider interface.
type mockCollectionProvider struct {
	collectionFunc func(name string) DataStore
}

func (m *mockCollectionProvider) Collection(name string) DataStore {
	if m.collectionFunc != nil {
		return m.collectionFunc(name)
	}
	return &mockDataStore{}
}

func TestNewSlotUsesSlotsCollection(t *testing.T) {
	var got string
	NewSlot(&mockCollectionProvider{collectionFunc: func(name string) DataStore {
		got = name
		return &mockDataStore{}
	}})
	if got != SlotsCollection {
		t.Errorf("Expected collection %q, got %q", SlotsCollection, got)
	}
}

func TestGetMissingSlot(t *testing.T) {
	slot := NewSlot(&mockCollectionProvider{})
	_, err := slot.Get(context.Background(), "transactions")
	if !errors.Is(err, storage.ErrSlotEmpty) {
		t.Errorf("Expected ErrSlotEmpty, got %v", err)
	}
}

func TestGetExistingSlot(t *testing.T) {
	ds := &mockDataStore{
		findOneFunc: func(_ context.Context, filter interface{}) *driver.SingleResult {
			f, ok := filter.(bson.M)
			if !ok || f["_id"] != "transactions" {
				t.Errorf("Unexpected filter %v", filter)
			}
			doc := bson.D{{Key: "_id", Value: "transactions"}, {Key: "value", Value: `[{"name":"a"}]`}}
			return driver.NewSingleResultFromDocument(doc, nil, nil)
		},
	}
	slot := NewSlot(&mockCollectionProvider{collectionFunc: func(string) DataStore { return ds }})
	got, err := slot.Get(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"name":"a"}]` {
		t.Errorf("Unexpected value %s", got)
	}
}

func TestGetFindError(t *testing.T) {
	expectedErr := errors.New("server selection timeout")
	ds := &mockDataStore{
		findOneFunc: func(context.Context, interface{}) *driver.SingleResult {
			return driver.NewSingleResultFromDocument(bson.D{}, expectedErr, nil)
		},
	}
	slot := NewSlot(&mockCollectionProvider{collectionFunc: func(string) DataStore { return ds }})
	_, err := slot.Get(context.Background(), "transactions")
	if err == nil || !strings.Contains(err.Error(), expectedErr.Error()) {
		t.Errorf("Expected find error, got: %v", err)
	}
	if errors.Is(err, storage.ErrSlotEmpty) {
		t.Error("A failing find must not look like an empty slot")
	}
}

func TestPutUpserts(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var called bool
	ds := &mockDataStore{
		replaceOneFunc: func(_ context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*driver.UpdateResult, error) {
			called = true
			doc, ok := replacement.(document)
			if !ok {
				t.Fatalf("Expected document, got %T", replacement)
			}
			if doc.Name != "transactions" || doc.Value != "[]" || !doc.UpdatedAt.Equal(fixed) {
				t.Errorf("Unexpected document %+v", doc)
			}
			if len(opts) != 1 || opts[0].Upsert == nil || !*opts[0].Upsert {
				t.Error("Expected upsert option")
			}
			return &driver.UpdateResult{UpsertedCount: 1}, nil
		},
	}
	slot := NewSlot(&mockCollectionProvider{collectionFunc: func(string) DataStore { return ds }})
	slot.now = func() time.Time { return fixed }

	if err := slot.Put(context.Background(), "transactions", []byte("[]")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !called {
		t.Error("ReplaceOne was not called")
	}
}

func TestPutError(t *testing.T) {
	expectedErr := errors.New("not primary")
	ds := &mockDataStore{
		replaceOneFunc: func(context.Context, interface{}, interface{}, ...*options.ReplaceOptions) (*driver.UpdateResult, error) {
			return nil, expectedErr
		},
	}
	slot := NewSlot(&mockCollectionProvider{collectionFunc: func(string) DataStore { return ds }})
	err := slot.Put(context.Background(), "transactions", []byte("[]"))
	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected wrapped error, got: %v", err)
	}
}

func TestSlotBackendOverMongo(t *testing.T) {
	stored := map[string]string{}
	ds := &mockDataStore{
		findOneFunc: func(_ context.Context, filter interface{}) *driver.SingleResult {
			key := filter.(bson.M)["_id"].(string)
			v, ok := stored[key]
			if !ok {
				return driver.NewSingleResultFromDocument(bson.D{}, driver.ErrNoDocuments, nil)
			}
			return driver.NewSingleResultFromDocument(bson.D{{Key: "_id", Value: key}, {Key: "value", Value: v}}, nil, nil)
		},
		replaceOneFunc: func(_ context.Context, _ interface{}, replacement interface{}, _ ...*options.ReplaceOptions) (*driver.UpdateResult, error) {
			doc := replacement.(document)
			stored[doc.Name] = doc.Value
			return &driver.UpdateResult{}, nil
		},
	}
	backend := storage.NewSlotBackend(NewSlot(&mockCollectionProvider{collectionFunc: func(string) DataStore { return ds }}), "")

	list, err := backend.Read(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("Expected empty read, got %v, %v", list, err)
	}
	if err := backend.Write(context.Background(), nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if stored[storage.DefaultSlotName] != "[]" {
		t.Errorf("Unexpected stored value %q", stored[storage.DefaultSlotName])
	}
}
