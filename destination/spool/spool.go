// Package spool exports records to a local spool directory.
//
// The spool is the catch-all destination: it needs no network and runs at
// the lowest priority, so a record always lands somewhere even when every
// repository call failed. A later pickup process replays spooled records;
// the msgpack receipt sidecar tells it what the original export run saw.
package spool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/datasophos/NexusLIMS-sub001/destination"
	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// DestinationName is the stable registry name.
const DestinationName = "spool"

// DefaultPriority runs the spool after every networked destination.
const DefaultPriority = 10

// Config configures the spool destination.
type Config struct {
	// Dir is the spool directory (required). Created on first export.
	Dir string
	// Priority overrides DefaultPriority when non-zero.
	Priority int
}

// Destination copies records into the spool directory.
type Destination struct {
	config Config
}

// New creates a spool destination.
func New(cfg Config) *Destination {
	return &Destination{config: cfg}
}

// Name implements destination.Destination.
func (d *Destination) Name() string { return DestinationName }

// Priority implements destination.Destination.
func (d *Destination) Priority() int {
	if d.config.Priority != 0 {
		return d.config.Priority
	}
	return DefaultPriority
}

// Enabled reports whether a spool directory is configured.
func (d *Destination) Enabled() bool {
	return d.config.Dir != ""
}

// Validate confirms the spool directory is writable.
func (d *Destination) Validate(_ context.Context) error {
	if !d.Enabled() {
		return fmt.Errorf("spool: directory is required")
	}
	if err := os.MkdirAll(d.config.Dir, 0o755); err != nil {
		return fmt.Errorf("spool: create directory: %w", err)
	}
	probe, err := os.CreateTemp(d.config.Dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("spool: directory not writable: %w", err)
	}
	name := probe.Name()
	iox.DiscardClose(probe)
	_ = os.Remove(name)
	return nil
}

// Export copies the record into a session subdirectory and writes the
// receipt sidecar. All failures are folded into a failed result.
func (d *Destination) Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult {
	if !d.Enabled() {
		return types.NewFailure(DestinationName, "destination not configured")
	}

	targetDir := filepath.Join(d.config.Dir, ectx.SessionID)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("create spool directory: %v", err))
	}

	base := filepath.Base(ectx.FilePath)
	targetPath := filepath.Join(targetDir, base)

	checksum, err := copyRecord(ectx.FilePath, targetPath)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("copy record: %v", err))
	}

	receipt := buildReceipt(ectx, base, checksum)
	receiptPath := targetPath + ".receipt"
	if err := writeReceiptFile(receiptPath, receipt); err != nil {
		// A record without its receipt is not replayable; drop the copy so
		// the spool never holds half an export.
		_ = os.Remove(targetPath)
		return types.NewFailure(DestinationName, fmt.Sprintf("write receipt: %v", err))
	}

	_ = ctx // no network I/O; the copy is bounded by local disk speed

	return types.NewSuccess(DestinationName, ectx.SessionID+"/"+base, "file://"+targetPath).
		WithMetadata(map[string]any{"sha256": checksum})
}

// copyRecord copies src to dst, hashing the content on the way through.
func copyRecord(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(in)

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		iox.DiscardClose(out)
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// buildReceipt snapshots the export run state for the pickup process.
func buildReceipt(ectx *types.ExportContext, filename, checksum string) *Receipt {
	r := &Receipt{
		SessionID:     ectx.SessionID,
		InstrumentPID: ectx.InstrumentPID,
		Filename:      filename,
		SHA256:        checksum,
		TimeRange:     [2]string{ectx.TimeRangeStart, ectx.TimeRangeEnd},
		SpooledAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if ectx.User != nil {
		r.User = ectx.User
	}
	for _, prev := range ectx.PreviousResults() {
		r.PriorAttempts = append(r.PriorAttempts, PriorAttempt{
			Destination: prev.Destination,
			Success:     prev.Success,
		})
	}
	return r
}

func writeReceiptFile(path string, receipt *Receipt) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeReceipt(f, receipt); err != nil {
		iox.DiscardClose(f)
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Verify Destination implements the destination interface.
var _ destination.Destination = (*Destination)(nil)
