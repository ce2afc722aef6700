package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frenchbreeze/breeze/internal/store"
)

// Accounts is an AccountRepo over the accounts collection.
type Accounts struct {
	coll *mongo.Collection
}

var _ store.AccountRepo = (*Accounts)(nil)

type accountRecord struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	DisplayName  string    `bson:"displayName,omitempty"`
	Provider     string    `bson:"provider"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (r *Accounts) CreateAccount(ctx context.Context, a *store.Account) error {
	_, err := r.coll.InsertOne(ctx, accountRecord{
		ID:           a.ID,
		Email:        strings.ToLower(a.Email),
		PasswordHash: a.PasswordHash,
		DisplayName:  a.DisplayName,
		Provider:     a.Provider,
		CreatedAt:    a.CreatedAt,
	})
	return classify("create account", err)
}

func (r *Accounts) AccountByEmail(ctx context.Context, email string) (*store.Account, error) {
	return r.find(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *Accounts) AccountByID(ctx context.Context, id string) (*store.Account, error) {
	return r.find(ctx, bson.M{"_id": id})
}

func (r *Accounts) find(ctx context.Context, filter bson.M) (*store.Account, error) {
	var rec accountRecord
	if err := r.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		return nil, classify("lookup account", err)
	}
	return &store.Account{
		ID:           rec.ID,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		DisplayName:  rec.DisplayName,
		Provider:     rec.Provider,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (r *Accounts) SetDisplayName(ctx context.Context, id, name string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"displayName": name}})
	if err != nil {
		return classify("set display name", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
