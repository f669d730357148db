package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docqa/model"
	"docqa/types"
)

const (
	DefaultCollection = "documents"
	DefaultDimensions = 768
)

// PostgresStore keeps documents in a pgvector table named after the
// collection. The table and index are created on first use, so a freshly
// constructed store leaves the database untouched until something is added
// or queried.
type PostgresStore struct {
	pool      *pgxpool.Pool
	embedder  model.Embedder
	table     string
	dims      int
	batchSize int
	logger    *slog.Logger

	mu    sync.Mutex
	ready bool
}

var _ VectorStore = (*PostgresStore)(nil)

// PostgresConfig configures a PostgresStore. Collection must be a plain SQL
// identifier; it is interpolated into DDL and queries.
type PostgresConfig struct {
	ConnString string
	Collection string
	Dimensions int
	BatchSize  int
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig, embedder model.Embedder) (*PostgresStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{
		pool:      pool,
		embedder:  embedder,
		table:     cfg.Collection,
		dims:      cfg.Dimensions,
		batchSize: cfg.BatchSize,
		logger:    slog.Default().With("component", "store"),
	}, nil
}

func (s *PostgresStore) ensureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	s.ready = true
	return nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %[1]s (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		source TEXT,
		chunk_id INT,
		chunk_size INT,
		embedding vector(%[2]d)
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);
	`, s.table, s.dims)
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Add embeds and inserts the documents in batches.
func (s *PostgresStore) Add(ctx context.Context, docs []types.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (id, content, source, chunk_id, chunk_size, embedding) VALUES ($1, $2, $3, $4, $5, $6)",
		s.table,
	)
	for start := 0; start < len(docs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		part := docs[start:end]

		texts := make([]string, len(part))
		for i, doc := range part {
			texts[i] = doc.Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		batch := &pgx.Batch{}
		for i, doc := range part {
			batch.Queue(insert,
				uuid.New(),
				doc.Content,
				doc.Source(),
				doc.ChunkID(),
				doc.ChunkSize(),
				pgvector.NewVector(vectors[i]),
			)
		}
		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		s.logger.Debug("inserted batch", "from", start, "count", len(part))
	}
	return nil
}

// Search embeds the query and runs a cosine similarity scan. Scores are
// 1 - cosine distance, clamped to [0, 1].
func (s *PostgresStore) Search(ctx context.Context, query string, k int, threshold float64) ([]types.ScoredDocument, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sel := fmt.Sprintf(`
		SELECT content, source, chunk_id, chunk_size, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, s.table)
	args := []any{pgvector.NewVector(vec), k}
	if threshold > 0 {
		sel = fmt.Sprintf(`
		SELECT content, source, chunk_id, chunk_size, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $2
	`, s.table)
		args = append(args, threshold)
	}

	rows, err := s.pool.Query(ctx, sel, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []types.ScoredDocument
	for rows.Next() {
		var content, source string
		var chunkID, chunkSize int
		var score float64
		if err := rows.Scan(&content, &source, &chunkID, &chunkSize, &score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		doc := types.NewDocument(content, map[string]any{
			types.MetaSource:    source,
			types.MetaChunkID:   chunkID,
			types.MetaChunkSize: chunkSize,
		})
		results = append(results, types.ScoredDocument{Document: doc, Score: score})
	}
	return results, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	if err := s.ensureReady(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// Reset drops the collection table and recreates it empty.
func (s *PostgresStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	s.ready = true
	s.logger.Info("collection reset", "table", s.table)
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("postgres connection pool closed")
	}
	return nil
}
