package api

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docqa/pipeline"
	"docqa/types"
)

const snippetLength = 200

// Handler serves the query and ingest endpoints on top of the pipeline.
type Handler struct {
	pipeline *pipeline.Pipeline
	docsDir  string
	logger   *slog.Logger
}

func NewHandler(p *pipeline.Pipeline, docsDir string) *Handler {
	return &Handler{
		pipeline: p,
		docsDir:  docsDir,
		logger:   slog.Default().With("component", "api"),
	}
}

func (h *Handler) HandleQuery(c *fiber.Ctx) error {
	var req types.QueryRequest
	if c.BodyParser(&req) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&req); len(errors) > 0 {
		return NewValidationError(errors)
	}

	if req.Stream {
		return h.streamQuery(c, req)
	}

	started := time.Now()
	answer, docs, err := h.pipeline.Query(c.UserContext(), req.Question, req.K, req.History)
	if err != nil {
		return err
	}

	resp := types.QueryResponse{
		Answer:    answer,
		ElapsedMs: time.Since(started).Milliseconds(),
		Timestamp: time.Now(),
	}
	if req.ShowSources {
		resp.Sources = toSourceRefs(docs)
	}
	return c.JSON(resp)
}

// streamQuery writes the answer as plain text fragments. The body writer
// runs after this handler returns, so it gets a fresh context; a client gone
// away surfaces as a flush error and stops the drain.
func (h *Handler) streamQuery(c *fiber.Ctx, req types.QueryRequest) error {
	stream, _, err := h.pipeline.StreamQuery(context.Background(), req.Question, req.K, req.History)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer stream.Close()
		for {
			fragment, done, err := stream.Recv()
			if err != nil {
				h.logger.Error("stream aborted", "error", err)
				return
			}
			if fragment != "" {
				if _, err := w.WriteString(fragment); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
			if done {
				return
			}
		}
	})
	return nil
}

// HandleIngest loads documents into the store. An empty body (or empty
// file_path) ingests the whole documents directory.
func (h *Handler) HandleIngest(c *fiber.Ctx) error {
	var req types.IngestRequest
	if len(c.Body()) > 0 {
		if c.BodyParser(&req) != nil {
			return ErrBadRequest()
		}
	}

	chunks, err := h.pipeline.Ingest(c.UserContext(), req.FilePath, req.Reset)
	if err != nil {
		return err
	}
	stats, err := h.pipeline.Stats(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(types.IngestResponse{
		ChunksIngested:   chunks,
		DocumentsInStore: stats.DocumentsInStore,
	})
}

// HandleUpload saves the multipart file into the documents directory under a
// uniquified name and ingests it.
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	name := fmt.Sprintf("%s_%s", uuid.New().String()[:8], filepath.Base(file.Filename))
	path := filepath.Join(h.docsDir, name)
	if err := c.SaveFile(file, path); err != nil {
		return fmt.Errorf("save uploaded file: %w", err)
	}
	h.logger.Info("file uploaded", "path", path)

	chunks, err := h.pipeline.Ingest(c.UserContext(), path, false)
	if err != nil {
		os.Remove(path)
		return err
	}

	return c.JSON(types.UploadResponse{
		File:           name,
		ChunksIngested: chunks,
	})
}

func (h *Handler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.pipeline.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(types.StatsResponse{
		DocumentsInStore: stats.DocumentsInStore,
		SourceFiles:      stats.SourceFiles,
	})
}

func (h *Handler) HandleReset(c *fiber.Ctx) error {
	if err := h.pipeline.ResetVectorStore(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func toSourceRefs(docs []types.Document) []types.SourceRef {
	refs := make([]types.SourceRef, len(docs))
	for i, doc := range docs {
		snippet := doc.Content
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength] + "..."
		}
		refs[i] = types.SourceRef{
			Source:  doc.Source(),
			ChunkID: doc.ChunkID(),
			Snippet: snippet,
		}
	}
	return refs
}
