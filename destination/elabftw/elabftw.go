// Package elabftw exports records to an eLabFTW electronic lab notebook
// through its v2 REST API (token auth).
//
// The export is two calls: create an experiment for the session, then attach
// the record file to it as an upload.
package elabftw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
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
const DestinationName = "elabftw"

// DefaultPriority places eLabFTW after the other ELN destinations.
const DefaultPriority = 80

// DefaultTimeout bounds each API call so Export always returns.
const DefaultTimeout = 30 * time.Second

// Config configures the eLabFTW destination.
type Config struct {
	// BaseURL is the eLabFTW instance root, e.g. https://eln.example.gov (required).
	BaseURL string
	// APIKey is the v2 API token (required).
	APIKey string
	// CategoryID tags created experiments, 0 leaves the instance default.
	CategoryID int
	// Priority overrides DefaultPriority when non-zero.
	Priority int
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Destination exports records to eLabFTW.
type Destination struct {
	config Config
	client *http.Client
}

// New creates an eLabFTW destination.
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
	return d.config.BaseURL != "" && d.config.APIKey != ""
}

// Validate confirms the API token works against the instance.
func (d *Destination) Validate(ctx context.Context) error {
	if !d.Enabled() {
		return fmt.Errorf("elabftw: base URL and API key are required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.config.BaseURL+"/api/v2/users/me", nil)
	if err != nil {
		return fmt.Errorf("elabftw: build preflight request: %w", err)
	}
	req.Header.Set("Authorization", d.config.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("elabftw: instance unreachable: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("elabftw: API key rejected")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("elabftw: preflight returned status %d", resp.StatusCode)
	}
	return nil
}

// Export creates an experiment for the session and attaches the record file.
// All failures are folded into a failed result.
func (d *Destination) Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult {
	if !d.Enabled() {
		return types.NewFailure(DestinationName, "destination not configured")
	}

	experimentID, err := d.createExperiment(ctx, ectx)
	if err != nil {
		return types.NewFailure(DestinationName, err.Error())
	}

	if err := d.attachRecord(ctx, experimentID, ectx.FilePath); err != nil {
		return types.NewFailure(DestinationName,
			fmt.Sprintf("experiment %s created but record attach failed: %v", experimentID, err))
	}

	recordURL := fmt.Sprintf("%s/experiments.php?mode=view&id=%s", d.config.BaseURL, experimentID)
	return types.NewSuccess(DestinationName, experimentID, recordURL)
}

// createExperiment posts a new experiment and returns its id, taken from the
// Location header per the v2 API.
func (d *Destination) createExperiment(ctx context.Context, ectx *types.ExportContext) (string, error) {
	payload := map[string]any{
		"title": "Instrument session " + ectx.SessionID,
		"body": fmt.Sprintf("Session %s on %s, %s to %s.",
			ectx.SessionID, ectx.InstrumentPID, ectx.TimeRangeStart, ectx.TimeRangeEnd),
	}
	if d.config.CategoryID != 0 {
		payload["category"] = d.config.CategoryID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode experiment payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.BaseURL+"/api/v2/experiments", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build experiment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", d.config.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create experiment: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("experiment rejected with status %d", resp.StatusCode)
	}

	// Location: .../api/v2/experiments/{id}
	location := resp.Header.Get("Location")
	id := location[strings.LastIndex(location, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("experiment response carried no Location id")
	}
	return id, nil
}

// attachRecord uploads the record file to the experiment as multipart form data.
func (d *Destination) attachRecord(ctx context.Context, experimentID, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	defer iox.DiscardClose(f)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read record file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/experiments/%s/uploads", d.config.BaseURL, experimentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", d.config.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload record: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Verify Destination implements the destination interface.
var _ destination.Destination = (*Destination)(nil)
