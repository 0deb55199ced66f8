package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ReceiptSource provides read access to settled receipts for archival. The
// account store satisfies this through a thin adapter; the archiver never
// needs write access to the primary store.
type ReceiptSource interface {
	// ListBefore returns all receipts settled strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Receipt, error)
}

// ReceiptArchiver serializes settlement receipts older than a cutoff to
// JSONL and uploads the batch to object storage.
//
// Deletion of archived receipts from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to run after the archive
// has been verified.
type ReceiptArchiver struct {
	writer   *Writer
	receipts ReceiptSource
	logger   *slog.Logger
}

// NewReceiptArchiver creates a ReceiptArchiver writing through the given
// Writer.
func NewReceiptArchiver(w *Writer, receipts ReceiptSource, logger *slog.Logger) *ReceiptArchiver {
	return &ReceiptArchiver{
		writer:   w,
		receipts: receipts,
		logger:   logger.With(slog.String("component", "receipt_archiver")),
	}
}

// archiveKey builds the object key for one archive batch, partitioned by
// cutoff date: receipts/2025/06/01/receipts-20250601T120000Z.jsonl
func archiveKey(cutoff time.Time) string {
	return fmt.Sprintf("receipts/%04d/%02d/%02d/receipts-%s.jsonl",
		cutoff.Year(), cutoff.Month(), cutoff.Day(),
		cutoff.UTC().Format("20060102T150405Z"),
	)
}

// Archive uploads every receipt settled before the cutoff as one JSONL
// object and returns the object key and the number of receipts archived. An
// empty batch uploads nothing and returns an empty key.
func (a *ReceiptArchiver) Archive(ctx context.Context, before time.Time) (string, int, error) {
	receipts, err := a.receipts.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: list receipts before %s: %w", before, err)
	}
	if len(receipts) == 0 {
		a.logger.InfoContext(ctx, "no receipts to archive",
			slog.Time("before", before),
		)
		return "", 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range receipts {
		if err := enc.Encode(r); err != nil {
			return "", 0, fmt.Errorf("s3blob: encode receipt %s: %w", r.ID, err)
		}
	}

	key := archiveKey(before)
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return "", 0, err
	}

	a.logger.InfoContext(ctx, "receipts archived",
		slog.String("key", key),
		slog.Int("count", len(receipts)),
		slog.Time("before", before),
	)
	return key, len(receipts), nil
}
