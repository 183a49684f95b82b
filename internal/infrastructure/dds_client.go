package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourusername/cmip6-fetch-go/internal/domain"
	"go.uber.org/zap"
)

// DDSClient talks to the CMCC Data Delivery System. It implements
// domain.Fetcher for download requests and exposes the per-variant metadata
// endpoint of the DDS hub.
type DDSClient struct {
	baseURL string
	apiKey  string
	dataset string
	client  *http.Client
	logger  *zap.Logger
}

// NewDDSClient creates a client for the configured DDS endpoint.
func NewDDSClient(config *domain.APIConfig, logger *zap.Logger) *DDSClient {
	return &DDSClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.Key,
		dataset: config.Dataset,
		client:  &http.Client{Timeout: config.Timeout},
		logger:  logger,
	}
}

// TimeSelection selects the temporal subset of a retrieve request. The DDS
// expects every coordinate as a list of strings.
type TimeSelection struct {
	Year  []string `json:"year"`
	Month []string `json:"month"`
	Day   []string `json:"day"`
}

// RetrievePayload is the request body of the DDS retrieve operation.
type RetrievePayload struct {
	Model    string        `json:"model"`
	Variable []string      `json:"variable"`
	Scenario string        `json:"scenario,omitempty"`
	Time     TimeSelection `json:"time"`
	Format   string        `json:"format"`
}

// BuildRetrievePayload maps a download request onto the DDS retrieve body:
// the upstream variable name, the full month/day grid for one year, netcdf
// output, and the scenario for future data only. Days the calendar does not
// have are ignored upstream.
func BuildRetrievePayload(req *domain.DownloadRequest) RetrievePayload {
	payload := RetrievePayload{
		Model:    req.Model,
		Variable: []string{domain.RemoteVariable(req.Variable)},
		Time: TimeSelection{
			Year:  []string{strconv.Itoa(req.Year)},
			Month: numberRange(1, 12),
			Day:   numberRange(1, 31),
		},
		Format: "netcdf",
	}
	if req.Mode == domain.ModeFuture {
		payload.Scenario = req.Scenario
	}
	return payload
}

func numberRange(from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// Fetch retrieves the payload for one request. The returned stream is the
// netcdf body; the caller owns closing it.
func (c *DDSClient) Fetch(ctx context.Context, req *domain.DownloadRequest) (io.ReadCloser, error) {
	payload := BuildRetrievePayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode retrieve payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/datasets/%s/%s/retrieve", c.baseURL, c.dataset, req.Variant())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "DDS "+c.apiKey)
	}

	c.logger.Debug("Retrieving dataset",
		zap.String("variant", req.Variant()),
		zap.String("model", req.Model),
		zap.Int("year", req.Year))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("retrieve request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("retrieve failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return resp.Body, nil
}

// VariantWidget is one widget entry of the DDS hub metadata for a variant.
type VariantWidget struct {
	Label   string          `json:"label"`
	Name    string          `json:"name,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

type variantInfoResponse struct {
	Widgets []VariantWidget `json:"widgets"`
}

// VariantInfo fetches the widget metadata the DDS hub publishes for a
// variable/mode variant, keyed by widget label.
func (c *DDSClient) VariantInfo(ctx context.Context, variable string, mode domain.Mode) (map[string]VariantWidget, error) {
	url := fmt.Sprintf("%s/web/datasets/%s/%s", c.baseURL, c.dataset, domain.Variant(variable, mode))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("variant info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("variant info failed with status %d", resp.StatusCode)
	}

	var info variantInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode variant info: %w", err)
	}

	widgets := make(map[string]VariantWidget, len(info.Widgets))
	for _, w := range info.Widgets {
		widgets[w.Label] = w
	}
	return widgets, nil
}
