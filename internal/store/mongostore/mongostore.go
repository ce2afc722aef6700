// Package mongostore implements the document and account stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frenchbreeze/breeze/internal/store"
)

const accountsCollection = "accounts"

// Store holds a connected MongoDB client.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	broker *store.Broker
}

// Connect dials uri, verifies the connection and prepares indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database), broker: store.NewBroker()}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create account index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Documents returns the DocumentStore backed by this database.
func (s *Store) Documents() *Documents {
	return &Documents{db: s.db, broker: s.broker}
}

// Accounts returns the AccountRepo backed by this database.
func (s *Store) Accounts() *Accounts {
	return &Accounts{coll: s.db.Collection(accountsCollection)}
}

// classify maps driver errors onto store error kinds.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrAlreadyExists
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return &store.Error{Kind: store.Transient, Op: op, Err: err}
	}

	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")) {
		return &store.Error{Kind: store.Transient, Op: op, Err: err}
	}
	return store.Classify(op, err)
}
