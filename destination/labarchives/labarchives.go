// Package labarchives exports records to a LabArchives electronic lab
// notebook.
//
// Runs below CDCS: when the context already holds a successful CDCS result,
// the notebook entry embeds a link to the curated record and the result
// metadata notes the cross-link.
package labarchives

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/datasophos/NexusLIMS-sub001/destination"
	"github.com/datasophos/NexusLIMS-sub001/destination/cdcs"
	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// DestinationName is the stable registry name.
const DestinationName = "labarchives"

// DefaultPriority places LabArchives after CDCS and before eLabFTW.
const DefaultPriority = 90

// DefaultTimeout bounds each API call so Export always returns.
const DefaultTimeout = 30 * time.Second

// Config configures the LabArchives destination.
type Config struct {
	// APIBaseURL is the LabArchives API root (required).
	APIBaseURL string
	// AccessKeyID and AccessPassword authenticate API calls (both required).
	AccessKeyID    string
	AccessPassword string
	// NotebookID selects the notebook entries are appended to (required).
	NotebookID string
	// Priority overrides DefaultPriority when non-zero.
	Priority int
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Destination exports records to LabArchives.
type Destination struct {
	config Config
	client *http.Client
}

// New creates a LabArchives destination.
func New(cfg Config) *Destination {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &Destination{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
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

// Enabled reports whether the required connection settings are present.
func (d *Destination) Enabled() bool {
	return d.config.APIBaseURL != "" &&
		d.config.AccessKeyID != "" &&
		d.config.AccessPassword != "" &&
		d.config.NotebookID != ""
}

// Validate probes the notebook the destination is configured to write into.
func (d *Destination) Validate(ctx context.Context) error {
	if !d.Enabled() {
		return fmt.Errorf("labarchives: API URL, access key, and notebook id are required")
	}

	url := fmt.Sprintf("%s/notebooks/%s", d.config.APIBaseURL, d.config.NotebookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("labarchives: build preflight request: %w", err)
	}
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("labarchives: API unreachable: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("labarchives: notebook %s probe returned status %d", d.config.NotebookID, resp.StatusCode)
	}
	return nil
}

// entryPayload is the append-entry request body.
type entryPayload struct {
	Caption       string `json:"caption"`
	SessionID     string `json:"session_identifier"`
	InstrumentPID string `json:"instrument_pid"`
	TimeRange     string `json:"time_range"`
	RecordPath    string `json:"record_path"`
	CuratedLink   string `json:"curated_link,omitempty"`
}

// entryResponse is the subset of the append-entry response we consume.
type entryResponse struct {
	EntryID string `json:"entry_id"`
	URL     string `json:"url"`
}

// Export appends a notebook entry describing the session. All failures are
// folded into a failed result.
func (d *Destination) Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult {
	if !d.Enabled() {
		return types.NewFailure(DestinationName, "destination not configured")
	}

	payload := entryPayload{
		Caption:       "Instrument session " + ectx.SessionID,
		SessionID:     ectx.SessionID,
		InstrumentPID: ectx.InstrumentPID,
		TimeRange:     ectx.TimeRangeStart + " / " + ectx.TimeRangeEnd,
		RecordPath:    ectx.FilePath,
	}

	// Cross-link the curated CDCS record when an earlier destination
	// produced one. The priority ordering guarantees CDCS has already run
	// (or been skipped) by the time this destination executes.
	linkEmbedded := false
	if prev, ok := ectx.PreviousResult(cdcs.DestinationName); ok && prev.Success && prev.RecordURL != nil {
		payload.CuratedLink = *prev.RecordURL
		linkEmbedded = true
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("encode entry payload: %v", err))
	}

	url := fmt.Sprintf("%s/notebooks/%s/entries", d.config.APIBaseURL, d.config.NotebookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("build entry request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("entry upload failed: %v", err))
	}
	defer iox.DiscardClose(resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("read entry response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewFailure(DestinationName, fmt.Sprintf("entry rejected with status %d", resp.StatusCode))
	}

	var parsed entryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("malformed entry response: %v", err))
	}
	if parsed.EntryID == "" {
		return types.NewFailure(DestinationName, "entry response carried no entry id")
	}

	return types.NewSuccess(DestinationName, parsed.EntryID, parsed.URL).
		WithMetadata(map[string]any{
			"notebook_id":        d.config.NotebookID,
			"cdcs_link_embedded": linkEmbedded,
		})
}

func (d *Destination) authorize(req *http.Request) {
	req.Header.Set("X-Access-Key-ID", d.config.AccessKeyID)
	req.Header.Set("X-Access-Password", d.config.AccessPassword)
}

// Verify Destination implements the destination interface.
var _ destination.Destination = (*Destination)(nil)
