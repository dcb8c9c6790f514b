// Copyright 2025 Chattyhq
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	ragstore "github.com/chattyhq/ragstore"
	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/ingestion"
	"github.com/chattyhq/ragstore/reembed"
	"github.com/chattyhq/ragstore/search"
)

func main() {
	app := &cli.App{
		Name:  "ragstore",
		Usage: "Document chunk store with semantic retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./ragstore-db",
				EnvVars: []string{"RAGSTORE_DB"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "https://api.openai.com/v1",
				EnvVars: []string{"EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "text-embedding-ada-002",
				EnvVars: []string{"EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "embedding-dimensions",
				Usage:   "Vector length the embedding model produces",
				Value:   1536,
				EnvVars: []string{"EMBEDDING_DIMENSIONS"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Embedding service API key",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Chunk, embed and store documents",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "chunk-size",
						Usage:   "Chunk window size in characters",
						Value:   800,
						EnvVars: []string{"CHUNK_SIZE"},
					},
					&cli.IntFlag{
						Name:    "chunk-overlap",
						Usage:   "Characters shared by consecutive windows",
						Value:   200,
						EnvVars: []string{"CHUNK_OVERLAP"},
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (defaults to the file name)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Concurrent embedding workers",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Retrieve the chunks most relevant to a query",
				ArgsUsage: "QUERY",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Usage:   "Maximum number of results",
						Value:   5,
						EnvVars: []string{"TOP_K_RESULTS"},
					},
					&cli.Float64Flag{
						Name:    "threshold",
						Usage:   "Minimum similarity a chunk must exceed",
						Value:   0.78,
						EnvVars: []string{"MATCH_THRESHOLD"},
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List stored documents",
				Action: listCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and all its chunks",
				ArgsUsage: "FILENAME",
				Action:    deleteCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed per provider call",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context, opts ...ragstore.DatabaseOption) (*ragstore.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model"), c.Int("embedding-dimensions")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts = append([]ragstore.DatabaseOption{ragstore.WithAIConfig(aiConfig)}, opts...)
	db, err := ragstore.NewDatabase(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	config := ragstore.DefaultRAGConfig()
	config.ChunkSize = c.Int("chunk-size")
	config.ChunkOverlap = c.Int("chunk-overlap")

	db, err := openDatabase(c, ragstore.WithConfig(config))
	if err != nil {
		return err
	}
	defer db.Close()

	var pipelineOpts []ingestion.Option
	if c.Int("pool-size") > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(c.Int("pool-size")))
	}
	pipeline, err := db.NewIngestionPipeline(pipelineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	ctx := context.Background()
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		filename := filepath.Base(path)
		title := c.String("title")
		if title == "" {
			title = strings.TrimSuffix(filename, filepath.Ext(filename))
		}

		report, err := pipeline.Ingest(ctx, ingestion.DocumentInfo{
			Filename:    filename,
			Title:       title,
			ContentType: filepath.Ext(filename),
			FileSize:    int64(len(data)),
		}, string(data))
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		fmt.Printf("%s: %d chunks stored", filename, report.ChunksCreated)
		if report.ChunksFailed > 0 {
			fmt.Printf(", %d failed", report.ChunksFailed)
			for _, failure := range report.Failures {
				fmt.Fprintf(os.Stderr, "  chunk %d: %v\n", failure.Index, failure.Err)
			}
		}
		fmt.Println()
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	retriever, err := db.NewRetriever()
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}

	results, err := retriever.Retrieve(context.Background(), c.Args().First(),
		search.WithQueryThreshold(float32(c.Float64("threshold"))),
		search.WithQueryTopK(c.Int("top-k")),
	)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks found.")
		return nil
	}

	for i, result := range results {
		fmt.Printf("--- %d. similarity %.4f (%s, chunk %s/%s)\n",
			i+1, result.Similarity,
			result.Chunk.Metadata["filename"],
			result.Chunk.Metadata["chunk_index"],
			result.Chunk.Metadata["total_chunks"])
		fmt.Println(result.Chunk.Content)
	}
	return nil
}

func listCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	docs, err := db.DocumentRepository().ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents stored.")
		return nil
	}

	for _, doc := range docs {
		count, err := db.DocumentRepository().CountChunks(ctx, doc.Id)
		if err != nil {
			return fmt.Errorf("failed to count chunks for %s: %w", doc.Filename, err)
		}
		fmt.Printf("%-40s %6d bytes  %4d chunks  updated %s\n",
			doc.Filename, doc.FileSize, count, doc.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one filename argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	filename := c.Args().First()
	if err := db.DocumentRepository().DeleteDocument(context.Background(), core.IDFromContent(filename)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}
	fmt.Printf("Deleted %s\n", filename)
	return nil
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reembedder, err := db.NewReembedder(reembedConfig, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(context.Background()); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
