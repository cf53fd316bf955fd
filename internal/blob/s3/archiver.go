package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// multipartThreshold switches uploads to the multipart manager once the
// serialized archive outgrows a single comfortable PutObject.
const multipartThreshold = 8 * 1024 * 1024

// ExecutionArchiver implements domain.Archiver: aged execution history is
// serialized to JSONL, uploaded under archive/executions/, verified, and
// only then deleted from the primary store. A failed verification leaves
// the rows in place for the next run.
type ExecutionArchiver struct {
	writer *Writer
	reader *Reader
	store  domain.ExecutionStore
	logger *slog.Logger
}

// NewExecutionArchiver creates an ExecutionArchiver.
func NewExecutionArchiver(writer *Writer, reader *Reader, store domain.ExecutionStore, logger *slog.Logger) *ExecutionArchiver {
	return &ExecutionArchiver{
		writer: writer,
		reader: reader,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveExecutions moves all executions older than the cutoff to cold
// storage and returns the number of archived records.
func (a *ExecutionArchiver) ArchiveExecutions(ctx context.Context, before time.Time) (int64, error) {
	executions, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions query: %w", err)
	}
	if len(executions) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(executions)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions marshal: %w", err)
	}

	path := archivePath("executions", before)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, buf, "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions upload: %w", err)
	}

	// Trim the primary store only after the object is confirmed present.
	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions verify: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("s3blob: archive executions verify: %s missing after upload", path)
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(executions)), fmt.Errorf("s3blob: archive executions trim: %w", err)
	}

	a.logger.Info("executions archived",
		slog.String("path", path),
		slog.Int("archived", len(executions)),
		slog.Int64("deleted", deleted),
		slog.Time("before", before),
	)
	return int64(len(executions)), nil
}

// archivePath partitions archive objects by the cutoff's year-month, e.g.
// archive/executions/2026-08.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ExecutionArchiver)(nil)
