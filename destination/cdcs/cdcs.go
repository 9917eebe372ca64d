// Package cdcs exports records to a NIST CDCS (Configurable Data Curation
// System) instance through its REST API.
//
// CDCS is the primary repository: it runs at the highest priority so other
// destinations can cross-link the curated record it creates.
package cdcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/datasophos/NexusLIMS-sub001/destination"
	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// DestinationName is the stable registry name.
const DestinationName = "cdcs"

// DefaultPriority places CDCS ahead of every ELN destination.
const DefaultPriority = 100

// DefaultTimeout bounds each REST call so Export always returns.
const DefaultTimeout = 30 * time.Second

// Config configures the CDCS destination.
type Config struct {
	// BaseURL is the CDCS instance root, e.g. https://cdcs.example.gov (required).
	BaseURL string
	// Username and Password authenticate REST calls (both required).
	Username string
	Password string
	// TemplateID selects the CDCS schema the record is curated under (required).
	TemplateID string
	// Priority overrides DefaultPriority when non-zero.
	Priority int
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Destination exports records to CDCS.
type Destination struct {
	config Config
	client *http.Client
}

// New creates a CDCS destination. Missing configuration is not an error
// here; it surfaces through Enabled instead so a half-configured process
// still runs its other destinations.
func New(cfg Config) *Destination {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
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
	return d.config.BaseURL != "" &&
		d.config.Username != "" &&
		d.config.Password != "" &&
		d.config.TemplateID != ""
}

// Validate probes the REST API with the configured credentials.
func (d *Destination) Validate(ctx context.Context) error {
	if !d.Enabled() {
		return fmt.Errorf("cdcs: base URL, credentials, and template id are required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.config.BaseURL+"/rest/data/", nil)
	if err != nil {
		return fmt.Errorf("cdcs: build preflight request: %w", err)
	}
	req.SetBasicAuth(d.config.Username, d.config.Password)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("cdcs: instance unreachable: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("cdcs: credentials rejected (status %d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("cdcs: preflight returned status %d", resp.StatusCode)
	}
	return nil
}

// uploadPayload is the CDCS curate request body.
type uploadPayload struct {
	Title      string `json:"title"`
	Template   string `json:"template"`
	XMLContent string `json:"xml_content"`
}

// uploadResponse is the subset of the CDCS curate response we consume.
type uploadResponse struct {
	ID string `json:"id"`
}

// Export uploads the record XML as a new data document.
// All failures are folded into a failed result; Export never panics and the
// HTTP client timeout guarantees it returns in bounded time.
func (d *Destination) Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult {
	if !d.Enabled() {
		return types.NewFailure(DestinationName, "destination not configured")
	}

	xml, err := os.ReadFile(ectx.FilePath)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("read record file: %v", err))
	}

	payload := uploadPayload{
		Title:      recordTitle(ectx),
		Template:   d.config.TemplateID,
		XMLContent: string(xml),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("encode upload payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.BaseURL+"/rest/data/", bytes.NewReader(body))
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("build upload request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(d.config.Username, d.config.Password)

	resp, err := d.client.Do(req)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("upload failed: %v", err))
	}
	defer iox.DiscardClose(resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("read upload response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewFailure(DestinationName,
			fmt.Sprintf("upload rejected with status %d: %s", resp.StatusCode, truncate(respBody, 200)))
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("malformed upload response: %v", err))
	}
	if parsed.ID == "" {
		return types.NewFailure(DestinationName, "upload response carried no document id")
	}

	recordURL := fmt.Sprintf("%s/data?id=%s", d.config.BaseURL, parsed.ID)
	return types.NewSuccess(DestinationName, parsed.ID, recordURL).
		WithMetadata(map[string]any{"template_id": d.config.TemplateID})
}

// recordTitle derives the curated document title from the session.
func recordTitle(ectx *types.ExportContext) string {
	if ectx.SessionID != "" {
		return ectx.SessionID
	}
	return strings.TrimSuffix(filepath.Base(ectx.FilePath), filepath.Ext(ectx.FilePath))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Verify Destination implements the destination interface.
var _ destination.Destination = (*Destination)(nil)
