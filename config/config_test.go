package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Index.ChunkSize != 800 {
		t.Errorf("expected ChunkSize=800, got %d", cfg.Index.ChunkSize)
	}
	if cfg.Index.ChunkOverlap != 120 {
		t.Errorf("expected ChunkOverlap=120, got %d", cfg.Index.ChunkOverlap)
	}
	if cfg.Index.Backend != "bolt" {
		t.Errorf("expected Backend=bolt, got %s", cfg.Index.Backend)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Embedding.Dimension != 1536 {
		t.Errorf("expected Dimension=1536, got %d", cfg.Embedding.Dimension)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "finrag.yaml")

	content := `
index:
  chunk_size: 400
  backend: file
embedding:
  provider: hash
  dimension: 256
retrieve:
  top_k: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Index.ChunkSize != 400 {
		t.Errorf("expected ChunkSize=400, got %d", cfg.Index.ChunkSize)
	}
	if cfg.Index.Backend != "file" {
		t.Errorf("expected Backend=file, got %s", cfg.Index.Backend)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("expected Provider=hash, got %s", cfg.Embedding.Provider)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "finrag.yaml")

	content := `
retrieve:
  diversity: 0.7
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.Diversity != 0.7 {
		t.Errorf("expected Diversity=0.7, got %f", cfg.Retrieve.Diversity)
	}
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".finrag", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
