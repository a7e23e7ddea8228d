package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/havengate/havengate/internal/haven/domain"
)

// wireReport is the ingestion payload. Narrower than FuzzyMatchReport on
// purpose: the record ID and timestamp are local bookkeeping and the
// server assigns its own, so even those never leave the device.
type wireReport struct {
	InputDomain   string `json:"input_domain"`
	MatchedDomain string `json:"matched_domain"`
	Distance      uint8  `json:"distance"`
	DeviceType    string `json:"device_type"`
}

// HTTPPoster posts reports to the ingestion endpoint. It deliberately
// sends no authentication and no cookies: the boundary accepts anonymous
// submissions so linkage is structurally impossible, not just forbidden.
type HTTPPoster struct {
	url    string
	client *http.Client
}

// NewHTTPPoster creates a poster for the given ingestion endpoint.
func NewHTTPPoster(url string, client *http.Client) (*HTTPPoster, error) {
	if url == "" {
		return nil, errors.New("telemetry endpoint URL is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPPoster{url: url, client: client}, nil
}

// Post submits one report. Any non-2xx status is an error; the sink
// drops it either way.
func (p *HTTPPoster) Post(ctx context.Context, rec domain.FuzzyMatchReport) error {
	payload, err := json.Marshal(wireReport{
		InputDomain:   rec.InputDomain,
		MatchedDomain: rec.MatchedDomain,
		Distance:      rec.Distance,
		DeviceType:    rec.DeviceType.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telemetry endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Poster = (*HTTPPoster)(nil)
