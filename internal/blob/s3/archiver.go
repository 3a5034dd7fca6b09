package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// BlobWriter is the narrow upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves old audit events out of the primary store into object
// storage. Events are serialized as newline-delimited JSON, partitioned by
// the year-month of the cutoff, and deleted from the store only after the
// upload succeeds. The uploaded history preserves the append-only record
// that the primary store trims.
type Archiver struct {
	writer BlobWriter
	audit  domain.AuditStore
	logger *slog.Logger

	// BatchSize bounds how many events are pulled per archive pass.
	BatchSize int
}

// DefaultArchiveBatch is the number of events archived per pass.
const DefaultArchiveBatch = 10000

// NewArchiver creates an Archiver writing through the given BlobWriter.
func NewArchiver(writer BlobWriter, audit domain.AuditStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		audit:     audit,
		logger:    logger.With("component", "archiver"),
		BatchSize: DefaultArchiveBatch,
	}
}

// ArchiveEvents uploads all audit events recorded before the cutoff to
// archive/events/YYYY-MM.jsonl and deletes them from the primary store. It
// returns the number of events archived.
func (a *Archiver) ArchiveEvents(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.audit.ListBefore(ctx, before, a.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	path := archivePath("events", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	// Delete only up to the newest archived event, not the full cutoff, in
	// case a later pass is needed for the remainder of the batch window.
	lastAt := events[len(events)-1].At.Add(time.Nanosecond)
	deleted, err := a.audit.DeleteBefore(ctx, lastAt)
	if err != nil {
		return int64(len(events)), fmt.Errorf("s3blob: archive events delete: %w", err)
	}

	a.logger.Info("archived audit events",
		"path", path,
		"archived", len(events),
		"deleted", deleted,
		"before", before.Format(time.RFC3339),
	)
	return int64(len(events)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
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
