// Package origination talks to the loan origination service. Origination
// owns the approved request: amount, term, rate and the negotiated vehicle
// price are read from here at instrumentation time, never trusted from the
// caller.
package origination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banquito-core/formalization-backend/internal/platform/logger"
)

// ErrRequestNotFound reports that origination has no approved request with
// the given id.
var ErrRequestNotFound = errors.New("origination: request not found")

type RequestSummary struct {
	RequestID      int64           `json:"request_id"`
	CustomerName   string          `json:"customer_name,omitempty"`
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
	TermMonths     int             `json:"term_months"`
	AnnualRate     decimal.Decimal `json:"annual_rate"`
	VehiclePrice   decimal.Decimal `json:"vehicle_price"`
}

type Client interface {
	GetRequestSummary(ctx context.Context, requestID int64) (*RequestSummary, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing origination base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &client{
		log:  log.With("client", "OriginationClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) GetRequestSummary(ctx context.Context, requestID int64) (*RequestSummary, error) {
	u := fmt.Sprintf("%s/api/v1/requests/%d/summary", strings.TrimRight(c.cfg.BaseURL, "/"), requestID)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRequestNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("origination request_summary http %d: %s", resp.StatusCode, string(raw))
	}

	var out RequestSummary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("origination request_summary decode: %w", err)
	}
	if out.RequestID == 0 {
		out.RequestID = requestID
	}
	return &out, nil
}
