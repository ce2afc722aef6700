package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// maxCASAttempts bounds the optimistic retry loop of a conditional write.
const maxCASAttempts = 5

// SQLDocuments is a DocumentStore over the documents table. Bodies are stored
// as JSON text; every write is a compare-and-swap on the version column.
//
// Snapshots are published by the writing process only.
// TODO: fan out commits from other processes with pq.Listener on a NOTIFY channel.
type SQLDocuments struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
	broker  *Broker
}

var (
	_ DocumentStore = (*SQLDocuments)(nil)
	_ Lister        = (*SQLDocuments)(nil)
)

func (d *SQLDocuments) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect)
}

func (d *SQLDocuments) Get(ctx context.Context, collection, key string) (*Document, error) {
	doc, err := d.get(ctx, collection, key)
	return doc, Classify("get", err)
}

func (d *SQLDocuments) get(ctx context.Context, collection, key string) (*Document, error) {
	b := d.builder()
	query, args := b.Select("data", "version", "created_at", "updated_at").
		From(b.Table(documentsTable)).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.EQ("doc_id", key),
		)).
		Query()

	var (
		raw string
		doc = Document{Collection: collection, Key: key}
	)
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&raw, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if doc.Data, err = decodeFields([]byte(raw)); err != nil {
		return nil, &Error{Kind: Permanent, Op: "get", Err: err}
	}
	return &doc, nil
}

func (d *SQLDocuments) Create(ctx context.Context, collection, key string, data Fields) (int64, error) {
	return d.apply(ctx, "create", collection, key, true, func(*Document) (Fields, error) {
		return data, nil
	})
}

func (d *SQLDocuments) MergeWrite(ctx context.Context, collection, key string, fields Fields) (int64, error) {
	return d.apply(ctx, "merge", collection, key, false, func(*Document) (Fields, error) {
		return fields, nil
	})
}

func (d *SQLDocuments) Update(ctx context.Context, collection, key string, fn UpdateFunc) (int64, error) {
	return d.apply(ctx, "update", collection, key, false, fn)
}

// apply runs the read, transform, conditional-write loop shared by all writes.
func (d *SQLDocuments) apply(ctx context.Context, op, collection, key string, createOnly bool, fn UpdateFunc) (int64, error) {
	for range maxCASAttempts {
		cur, err := d.get(ctx, collection, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return 0, Classify(op, err)
		}
		if createOnly && cur != nil {
			return 0, ErrAlreadyExists
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

		var base Fields
		if cur != nil {
			base = cur.Data
		}
		encoded, err := json.Marshal(Merge(base, patch))
		if err != nil {
			return 0, &Error{Kind: Permanent, Op: op, Err: fmt.Errorf("encode document: %w", err)}
		}

		version, err := d.seq.Next(ctx)
		if err != nil {
			return 0, Classify(op, err)
		}

		now := time.Now().UTC()
		var ok bool
		if cur == nil {
			ok, err = d.insert(ctx, collection, key, encoded, version, now)
		} else {
			ok, err = d.swap(ctx, collection, key, encoded, cur.Version, version, now)
		}
		if err != nil {
			return 0, Classify(op, err)
		}
		if !ok {
			if createOnly {
				return 0, ErrAlreadyExists
			}
			continue
		}

		d.publish(collection, key, encoded, version)
		return version, nil
	}
	return 0, &Error{Kind: Transient, Op: op, Err: ErrConflict}
}

func (d *SQLDocuments) insert(ctx context.Context, collection, key string, data []byte, version int64, now time.Time) (bool, error) {
	query, args := d.builder().Insert(documentsTable).
		Columns("collection", "doc_id", "data", "version", "created_at", "updated_at").
		Values(collection, key, string(data), version, now, now).
		OnConflict(
			entsql.ConflictColumns("collection", "doc_id"),
			entsql.DoNothing(),
		).
		Query()
	return execAffected(ctx, d.db, query, args)
}

func (d *SQLDocuments) swap(ctx context.Context, collection, key string, data []byte, from, to int64, now time.Time) (bool, error) {
	query, args := d.builder().Update(documentsTable).
		Set("data", string(data)).
		Set("version", to).
		Set("updated_at", now).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.EQ("doc_id", key),
			entsql.EQ("version", from),
		)).
		Query()
	return execAffected(ctx, d.db, query, args)
}

func execAffected(ctx context.Context, db *sql.DB, query string, args []any) (bool, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *SQLDocuments) publish(collection, key string, data []byte, version int64) {
	fields, err := decodeFields(data)
	if err != nil {
		return
	}
	d.broker.Publish(Snapshot{
		Collection: collection,
		Key:        key,
		Exists:     true,
		Data:       fields,
		Version:    version,
	})
}

func (d *SQLDocuments) Subscribe(ctx context.Context, collection, key string, fn func(Snapshot)) (func(), error) {
	sub := d.broker.Subscribe(collection, key, fn)

	initial := Snapshot{Collection: collection, Key: key}
	doc, err := d.get(ctx, collection, key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		sub.Cancel()
		return nil, Classify("subscribe", err)
	default:
		initial.Exists = true
		initial.Data = doc.Data
		initial.Version = doc.Version
	}
	sub.Offer(initial)
	sub.CancelOnDone(ctx)
	return sub.Cancel, nil
}

func (d *SQLDocuments) Keys(ctx context.Context, collection string) ([]string, error) {
	b := d.builder()
	query, args := b.Select("doc_id").
		From(b.Table(documentsTable)).
		Where(entsql.EQ("collection", collection)).
		OrderBy("doc_id").
		Query()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Classify("keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, Classify("keys", err)
		}
		keys = append(keys, k)
	}
	return keys, Classify("keys", rows.Err())
}

func decodeFields(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}
