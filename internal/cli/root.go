package cli

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"finrag/config"
	"finrag/internal/adapter/cache"
	"finrag/internal/adapter/chunker"
	"finrag/internal/adapter/embedding"
	"finrag/internal/adapter/store"
	"finrag/internal/port"
	"finrag/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "finrag",
	Short: "Financial document retrieval engine",
	Long: `finrag ingests free-form financial text (stock summaries, filings,
news, sentiment reports), splits it into chunks, embeds the chunks and
stores them in a searchable vector index.

Example usage:
  finrag ingest ./data              # Index a directory of documents
  finrag query -q "AAPL earnings"   # Similarity search
  finrag topic "asia tech"          # Aggregated lookup per category`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./finrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func newLogger() *log.Logger {
	logger := log.New()
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.MaxRetries), nil
	default:
		return embedding.NewOpenAIEmbedder(embedding.Options{
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimension:  cfg.Embedding.Dimension,
			MaxRetries: cfg.Embedding.MaxRetries,
		})
	}
}

// buildEngine assembles and initializes the retrieval engine. The
// returned closer releases the persistence backend.
func buildEngine(ctx context.Context) (*usecase.Engine, func(), error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	ch, err := chunker.NewTextChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, nil, err
	}

	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var blobs port.BlobStore
	closer := func() {}
	switch cfg.Index.Backend {
	case "file":
		blobs = store.NewFileStore(config.IndexFilePath(rootDir))
	default:
		bs, err := store.NewBoltStore(config.IndexDBPath(rootDir), cfg.Index.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open index store: %w", err)
		}
		blobs = bs
		closer = func() { bs.Close() }
	}

	engine := usecase.NewEngine(ch, cache.New(embedder), blobs, newLogger())
	if err := engine.Initialize(ctx); err != nil {
		closer()
		return nil, nil, err
	}

	return engine, closer, nil
}
