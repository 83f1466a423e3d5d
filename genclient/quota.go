package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"genfill/core"
	"genfill/logging"

	"go.uber.org/zap"
)

// Points and per-image prices used to turn the quota balance into image counts.
const (
	PointsPerUSD = 500000
	Price1K      = 0.15
	Price2K      = 0.16
	Price4K      = 0.18
)

// QuotaInfo is the account balance as reported by the usage endpoint.
type QuotaInfo struct {
	TotalGranted   float64 `json:"totalGranted"`
	TotalUsed      float64 `json:"totalUsed"`
	TotalAvailable float64 `json:"totalAvailable"`
	AvailableUSD   float64 `json:"availableUSD"`
	Count1K        int     `json:"count1K"`
	Count2K        int     `json:"count2K"`
	Count4K        int     `json:"count4K"`
}

// NewQuotaInfo derives the USD balance and per-tier image counts from raw points.
// This is a pure function with no side effects.
func NewQuotaInfo(granted, used, available float64) QuotaInfo {
	usd := available / PointsPerUSD
	return QuotaInfo{
		TotalGranted:   granted,
		TotalUsed:      used,
		TotalAvailable: available,
		AvailableUSD:   usd,
		Count1K:        int(math.Floor(usd / Price1K)),
		Count2K:        int(math.Floor(usd / Price2K)),
		Count4K:        int(math.Floor(usd / Price4K)),
	}
}

// points accepts a JSON number or a numeric string. Anything else counts as zero.
type points float64

func (p *points) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*p = 0
		return nil
	}
	*p = points(v)
	return nil
}

type quotaResponse struct {
	Data *struct {
		TotalGranted   points `json:"total_granted"`
		TotalUsed      points `json:"total_used"`
		TotalAvailable points `json:"total_available"`
	} `json:"data"`
}

// QuotaClient queries `GET {baseURL}/api/usage/token`.
type QuotaClient struct {
	httpClient *http.Client
	logger     *logging.Logger
}

// NewQuotaClient creates a quota client.
func NewQuotaClient(httpClient *http.Client, logger *logging.Logger) (*QuotaClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("genclient: logger cannot be nil")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &QuotaClient{httpClient: httpClient, logger: logger.Named("quota")}, nil
}

// Quota fetches the balance for apiKey. timeoutSeconds below the minimum is raised to it.
func (q *QuotaClient) Quota(ctx context.Context, apiKey, baseURL string, timeoutSeconds int) (QuotaInfo, error) {
	apiKey = strings.TrimSpace(apiKey)
	baseURL = core.NormalizeBaseURL(baseURL)
	if apiKey == "" {
		return QuotaInfo{}, core.ErrAPIKeyEmpty()
	}
	if baseURL == "" {
		return QuotaInfo{}, core.ErrBaseURLEmpty()
	}
	if timeoutSeconds < core.MinTimeoutSeconds {
		timeoutSeconds = core.MinTimeoutSeconds
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/api/usage/token", nil)
	if err != nil {
		return QuotaInfo{}, fmt.Errorf("genclient: failed to build quota request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", core.UserAgent())

	resp, err := q.httpClient.Do(req)
	if err != nil {
		classified := classifyQuotaError(ctx, reqCtx, err, timeoutSeconds)
		q.logger.Warn("quota request failed", zap.String("kind", string(classified.Kind)), zap.Error(err))
		return QuotaInfo{}, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		q.logger.Warn("quota endpoint returned error status", zap.Int("status", resp.StatusCode))
		return QuotaInfo{}, NewHTTPError(resp.StatusCode, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return QuotaInfo{}, classifyQuotaError(ctx, reqCtx, err, timeoutSeconds)
	}

	var parsed quotaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return QuotaInfo{}, &Error{Kind: KindBadResponse, Message: "quota endpoint returned non-JSON data", Err: err}
	}
	if parsed.Data == nil {
		return QuotaInfo{}, &Error{Kind: KindBadResponse, Message: "quota endpoint returned malformed data"}
	}

	info := NewQuotaInfo(
		float64(parsed.Data.TotalGranted),
		float64(parsed.Data.TotalUsed),
		float64(parsed.Data.TotalAvailable),
	)
	q.logger.Debug("quota fetched",
		zap.Float64("available_usd", info.AvailableUSD),
		zap.Int("count_2k", info.Count2K))
	return info, nil
}

func classifyQuotaError(parent, reqCtx context.Context, err error, timeoutSeconds int) *Error {
	if parent.Err() != nil {
		return &Error{Kind: KindCanceled, Message: "Request canceled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		e := NewTimeoutError(timeoutSeconds, err)
		e.Message = fmt.Sprintf("Quota query timed out (%ds)", timeoutSeconds)
		return e
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return NewNetworkError(err)
	}
	return &Error{Kind: KindBadResponse, Message: "Unexpected response from quota endpoint", Err: err}
}
