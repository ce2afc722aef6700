package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	documentsTable = "documents"
	accountsTable  = "accounts"
)

var textType = map[string]string{
	dialect.SQLite:   "text",
	dialect.Postgres: "text",
}

var (
	documentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "collection", Type: field.TypeString, Size: 64},
		{Name: "doc_id", Type: field.TypeString, Size: 128},
		{Name: "data", Type: field.TypeString, SchemaType: textType},
		{Name: "version", Type: field.TypeInt64},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	documentsSchema = &schema.Table{
		Name:       documentsTable,
		Columns:    documentsColumns,
		PrimaryKey: []*schema.Column{documentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "document_collection_doc_id",
				Unique:  true,
				Columns: []*schema.Column{documentsColumns[1], documentsColumns[2]},
			},
		},
	}

	accountsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 64},
		{Name: "email", Type: field.TypeString, Size: 320},
		{Name: "password_hash", Type: field.TypeString, Nullable: true},
		{Name: "display_name", Type: field.TypeString, Nullable: true},
		{Name: "provider", Type: field.TypeString, Size: 32},
		{Name: "created_at", Type: field.TypeTime},
	}
	accountsSchema = &schema.Table{
		Name:       accountsTable,
		Columns:    accountsColumns,
		PrimaryKey: []*schema.Column{accountsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "account_email",
				Unique:  true,
				Columns: []*schema.Column{accountsColumns[1]},
			},
		},
	}

	// tables lists every table managed by the migrator.
	tables = []*schema.Table{documentsSchema, accountsSchema}
)

// migrate creates or upgrades the managed tables.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
