package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/ThiagoRGoveia/apt-trades/internal/parser"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://apis.data.go.kr/1613000/RTMSDataSvcAptTradeDev/getRTMSDataSvcAptTradeDev"

// Page is the result of one request for one unit.
type Page struct {
	Unit    models.Unit
	Records []models.RawRecord
	PageCap int
	// Truncated is set when the provider returned exactly PageCap rows. The
	// provider has no "more pages" marker, so this is a heuristic: a unit with
	// exactly PageCap transactions is flagged as well.
	Truncated bool
	// TotalCount is the provider's totalCount, -1 when not sent.
	TotalCount int
	Body       []byte
}

// Fetcher issues a single paginated request for a unit. It never retries.
type Fetcher interface {
	Fetch(ctx context.Context, unit models.Unit, pageCap int) (*Page, error)
}

type Config struct {
	Endpoint          string
	ServiceKey        string
	RequestsPerSecond float64
	Timeout           time.Duration
	// RequestBudget caps requests per client lifetime, 0 for no cap.
	RequestBudget int
}

// APIClient is the HTTP Fetcher for the apartment trade endpoint.
type APIClient struct {
	http       *resty.Client
	endpoint   string
	serviceKey string

	mu       sync.Mutex
	budget   int
	requests int
}

func NewAPIClient(cfg Config) (*APIClient, error) {
	if cfg.ServiceKey == "" {
		return nil, errors.New("service key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	key := cfg.ServiceKey
	// data.go.kr hands out keys pre-encoded; resty encodes once more.
	if strings.Contains(key, "%") {
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("Accept", "application/xml")

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	return &APIClient{
		http:       httpClient,
		endpoint:   endpoint,
		serviceKey: key,
		budget:     cfg.RequestBudget,
	}, nil
}

// Requests returns how many upstream requests were issued so far.
func (c *APIClient) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

func (c *APIClient) take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.budget > 0 && c.requests >= c.budget {
		return false
	}
	c.requests++
	return true
}

func (c *APIClient) Fetch(ctx context.Context, unit models.Unit, pageCap int) (*Page, error) {
	if pageCap <= 0 {
		return nil, fmt.Errorf("invalid page cap %d", pageCap)
	}
	if !c.take() {
		return nil, fmt.Errorf("%s: %w", unit, models.ErrRequestBudgetExhausted)
	}

	slog.DebugContext(ctx, "requesting unit", "unit", unit.String(), "page_cap", pageCap)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"serviceKey": c.serviceKey,
			"DEAL_YMD":   unit.Period.String(),
			"LAWD_CD":    unit.Region.Code,
			"pageNo":     "1",
			"numOfRows":  strconv.Itoa(pageCap),
		}).
		Get(c.endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &models.TransportError{Unit: unit, Err: err}
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, &models.RateLimitError{Unit: unit, Reason: "HTTP 429"}
	}
	if resp.IsError() {
		return nil, &models.TransportError{Unit: unit, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}

	body := resp.Body()
	decoded, err := parser.DecodePage(body)
	if err != nil {
		var missing *parser.MissingBodyError
		if errors.As(err, &missing) {
			return nil, &models.RateLimitError{Unit: unit, Reason: missing.Reason}
		}
		return nil, &models.TransportError{Unit: unit, StatusCode: resp.StatusCode(), Err: err}
	}

	page := &Page{
		Unit:       unit,
		Records:    decoded.Records,
		PageCap:    pageCap,
		Truncated:  len(decoded.Records) == pageCap,
		TotalCount: decoded.TotalCount,
		Body:       body,
	}
	if page.TotalCount > len(page.Records) {
		slog.WarnContext(ctx, "provider reports more rows than returned",
			"unit", unit.String(), "rows", len(page.Records), "total_count", page.TotalCount)
	}

	return page, nil
}
