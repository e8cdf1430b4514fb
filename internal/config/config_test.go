package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "docgate_test")
	os.Setenv("SAFE_DELETE", "true")
	os.Setenv("GLOBAL_COLLECTIONS", "settings, templates")
	defer func() {
		os.Unsetenv("SAFE_DELETE")
		os.Unsetenv("GLOBAL_COLLECTIONS")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.MongoDB.Database != "docgate_test" {
		t.Fatalf("unexpected mongo config: %+v", cfg.MongoDB)
	}
	if !cfg.Store.SafeDelete {
		t.Fatalf("expected SafeDelete to be enabled")
	}
	if cfg.Store.TrashCollection != "trash" {
		t.Fatalf("unexpected trash collection: %q", cfg.Store.TrashCollection)
	}
	if len(cfg.Store.GlobalCollections) != 2 || cfg.Store.GlobalCollections[1] != "templates" {
		t.Fatalf("unexpected global collections: %v", cfg.Store.GlobalCollections)
	}
}
