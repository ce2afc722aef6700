package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "sqlite3", s.Dialect())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	require.Error(t, err)
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceCounter_Monotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	prev := int64(0)
	for range 5 {
		n, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestSQLDocuments_Conformance(t *testing.T) {
	testDocumentStore(t, openTestStore(t).Documents())
}

func TestMemory_Conformance(t *testing.T) {
	testDocumentStore(t, NewMemory())
}

func TestSQLAccounts(t *testing.T) {
	testAccountRepo(t, openTestStore(t).Accounts())
}

func TestMemoryAccounts(t *testing.T) {
	testAccountRepo(t, NewMemory())
}

func TestSQLDocuments_PersistsAcrossRepos(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Documents().Create(ctx, "users", "u1", Fields{"dailyStreak": 3})
	require.NoError(t, err)

	doc, err := s.Documents().Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), doc.Data["dailyStreak"])
}
