package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	if _, ok := c.Get("missing"); ok {
		t.Error("expected missing key to be absent")
	}
	c.Set("frenchBreezeLevel_u1", "Beginner")
	if v, ok := c.Get("frenchBreezeLevel_u1"); !ok || v != "Beginner" {
		t.Errorf("Get = (%q, %v)", v, ok)
	}
	c.Set("frenchBreezeLevel_u1", "Advanced")
	if v, _ := c.Get("frenchBreezeLevel_u1"); v != "Advanced" {
		t.Errorf("overwrite: got %q", v)
	}
	c.Remove("frenchBreezeLevel_u1")
	if _, ok := c.Get("frenchBreezeLevel_u1"); ok {
		t.Error("expected removed key to be absent")
	}
}

func TestMemory(t *testing.T) {
	exerciseCache(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	f, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	exerciseCache(t, f)
}

func TestFile_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	f, err := OpenFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	f.Set("frenchBreezeStreak_u1", "4")

	reopened, err := OpenFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := reopened.Get("frenchBreezeStreak_u1"); !ok || v != "4" {
		t.Errorf("after reopen Get = (%q, %v)", v, ok)
	}
}

func TestFile_CorruptFileIsReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, ok := f.Get("anything"); ok {
		t.Error("expected empty cache")
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("BREEZE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BREEZE_TEST_REDIS_URL not set")
	}
	r, err := ConnectRedis(context.Background(), url, time.Minute, nil)
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	defer r.Close()
	exerciseCache(t, r)
}
