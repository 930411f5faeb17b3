package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethgrid/pester"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/avetisov/investline/internal/app/config"
	"github.com/avetisov/investline/internal/app/logger"
)

type (
	// PriceClient proxies the upstream market data API. Rate-limited because
	// public tickers throttle aggressively.
	PriceClient interface {
		GetTicker(symbol string) (*TickerDto, error)
	}
	PriceClientImpl struct {
		ServiceURL   string
		pesterClient *pester.Client
		rateLimiter  ratelimit.Limiter
	}
	TickerDto struct {
		Symbol           string  `json:"symbol"`
		Price            float64 `json:"price,string"`
		Change24hPercent float64 `json:"change_24h_percent,string"`
		Volume24h        float64 `json:"volume_24h,string"`
		High24h          float64 `json:"high_24h,string"`
		Low24h           float64 `json:"low_24h,string"`
	}
	LoggingRoundTripper struct {
		Proxied http.RoundTripper
	}
)

func NewPriceClient(c config.AppConfig) *PriceClientImpl {
	ratePerSecond := c.PriceMaxRequestsPerMinute / 60
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	rateLimiter := ratelimit.New(ratePerSecond)

	pesterClient := pester.New()
	pesterClient.Concurrency = 1
	pesterClient.MaxRetries = 2
	pesterClient.Backoff = pester.ExponentialBackoff
	pesterClient.KeepLog = true
	pesterClient.Timeout = time.Duration(c.PriceRequestTimeoutSec) * time.Second
	pesterClient.RetryOnHTTP429 = false
	pesterClient.Transport = &LoggingRoundTripper{Proxied: http.DefaultTransport}

	return &PriceClientImpl{
		ServiceURL:   c.PriceAPIURL,
		pesterClient: pesterClient,
		rateLimiter:  rateLimiter,
	}
}

func (pc *PriceClientImpl) GetTicker(symbol string) (*TickerDto, error) {
	pc.rateLimiter.Take()

	resp, err := pc.pesterClient.Get(pc.ServiceURL + "/api/v1/ticker/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	defer resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("unknown ticker symbol: %s", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker request for %s failed with status %d", symbol, resp.StatusCode)
	}

	dto := &TickerDto{}
	if err := json.Unmarshal(body, dto); err != nil {
		return nil, fmt.Errorf("error unmarshalling response to DTO: %w", err)
	}
	return dto, nil
}

func (lt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	logRequest(r)
	response, err := lt.Proxied.RoundTrip(r)
	if err != nil {
		logger.Log.Error("price request error", zap.Error(err))
		return nil, err
	}
	logResponse(response)
	return response, nil
}

func logResponse(response *http.Response) {
	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		logger.Log.Error("price response error", zap.Error(err))
		return
	}
	response.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	body := string(bodyBytes)
	if len(body) == 0 {
		body = "empty body"
	}

	logger.Log.Debug("PRICE RESPONSE:",
		zap.Int("Status", response.StatusCode),
		zap.Int64("Content-Length", response.ContentLength),
		zap.String("Body", body),
	)
}

func logRequest(r *http.Request) {
	logger.Log.Debug("PRICE REQUEST:",
		zap.String("Method", r.Method),
		zap.String("Path", r.URL.String()),
	)
}
