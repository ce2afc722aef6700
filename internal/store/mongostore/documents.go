package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frenchbreeze/breeze/internal/store"
)

// maxCASAttempts bounds the optimistic retry loop of Update.
const maxCASAttempts = 5

// Documents stores each document as {_id, data, version, createdAt, updatedAt}
// in a MongoDB collection named after the document collection. Merges are
// translated to $set on "data.<path>".
//
// TODO: feed the broker from a change stream when the deployment is a replica set.
type Documents struct {
	db     *mongo.Database
	broker *store.Broker
}

var (
	_ store.DocumentStore = (*Documents)(nil)
	_ store.Lister        = (*Documents)(nil)
)

type record struct {
	ID        string    `bson:"_id"`
	Data      bson.M    `bson:"data"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (r *record) document(collection string) *store.Document {
	return &store.Document{
		Collection: collection,
		Key:        r.ID,
		Data:       normalizeMap(r.Data),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (d *Documents) Get(ctx context.Context, collection, key string) (*store.Document, error) {
	var rec record
	err := d.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		return nil, classify("get", err)
	}
	return rec.document(collection), nil
}

func (d *Documents) Create(ctx context.Context, collection, key string, data store.Fields) (int64, error) {
	now := time.Now().UTC()
	rec := record{
		ID:        key,
		Data:      bson.M(store.Merge(nil, data)),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := d.db.Collection(collection).InsertOne(ctx, rec); err != nil {
		return 0, classify("create", err)
	}
	d.publish(collection, &rec)
	return rec.Version, nil
}

func (d *Documents) MergeWrite(ctx context.Context, collection, key string, fields store.Fields) (int64, error) {
	now := time.Now().UTC()
	set, onInsert := mergeUpdate(fields)
	set["updatedAt"] = now
	onInsert["createdAt"] = now

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var rec record
	err := d.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$set": set, "$setOnInsert": onInsert, "$inc": bson.M{"version": 1}},
		opts,
	).Decode(&rec)
	if err != nil {
		return 0, classify("merge", err)
	}
	d.publish(collection, &rec)
	return rec.Version, nil
}

func (d *Documents) Update(ctx context.Context, collection, key string, fn store.UpdateFunc) (int64, error) {
	for range maxCASAttempts {
		cur, err := d.Get(ctx, collection, key)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}

		patch, err := fn(cur)
		if err != nil {
			return 0, err
		}
		if patch == nil {
			if cur != nil {
				return cur.Version, nil
			}
			return 0, nil
		}

		if cur == nil {
			v, err := d.Create(ctx, collection, key, patch)
			if errors.Is(err, store.ErrAlreadyExists) {
				continue
			}
			return v, err
		}

		set, _ := mergeUpdate(patch)
		set["updatedAt"] = time.Now().UTC()
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var rec record
		err = d.db.Collection(collection).FindOneAndUpdate(ctx,
			bson.M{"_id": key, "version": cur.Version},
			bson.M{"$set": set, "$inc": bson.M{"version": 1}},
			opts,
		).Decode(&rec)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return 0, classify("update", err)
		}
		d.publish(collection, &rec)
		return rec.Version, nil
	}
	return 0, &store.Error{Kind: store.Transient, Op: "update", Err: store.ErrConflict}
}

func (d *Documents) Subscribe(ctx context.Context, collection, key string, fn func(store.Snapshot)) (func(), error) {
	sub := d.broker.Subscribe(collection, key, fn)

	initial := store.Snapshot{Collection: collection, Key: key}
	doc, err := d.Get(ctx, collection, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		sub.Cancel()
		return nil, err
	default:
		initial.Exists = true
		initial.Data = doc.Data
		initial.Version = doc.Version
	}
	sub.Offer(initial)
	sub.CancelOnDone(ctx)
	return sub.Cancel, nil
}

func (d *Documents) Keys(ctx context.Context, collection string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1})
	cur, err := d.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify("keys", err)
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, classify("keys", err)
		}
		keys = append(keys, row.ID)
	}
	return keys, classify("keys", cur.Err())
}

func (d *Documents) publish(collection string, rec *record) {
	d.broker.Publish(store.Snapshot{
		Collection: collection,
		Key:        rec.ID,
		Exists:     true,
		Data:       normalizeMap(rec.Data),
		Version:    rec.Version,
	})
}

// mergeUpdate flattens a merge patch into $set paths under "data". Nested maps
// are flattened so they merge instead of replacing; empty maps only
// materialize on insert.
func mergeUpdate(fields store.Fields) (set, onInsert bson.M) {
	set, onInsert = bson.M{}, bson.M{}
	for k, v := range fields {
		flatten("data."+k, v, set, onInsert)
	}
	return set, onInsert
}

func flatten(path string, v any, set, onInsert bson.M) {
	var m map[string]any
	switch t := v.(type) {
	case map[string]any:
		m = t
	case store.Fields:
		m = t
	default:
		set[path] = v
		return
	}
	if len(m) == 0 {
		onInsert[path] = bson.M{}
		return
	}
	for k, vv := range m {
		flatten(path+"."+k, vv, set, onInsert)
	}
}

// normalizeMap converts decoded BSON containers to plain Go maps and slices.
func normalizeMap(m bson.M) store.Fields {
	out := make(store.Fields, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(normalizeMap(t))
	case map[string]any:
		return map[string]any(normalizeMap(t))
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
