package dartconnect

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/resilience"
)

const (
	defaultAPIBaseURL   = "https://tv.dartconnect.com"
	defaultRecapBaseURL = "https://recap.dartconnect.com"
	maxResponseBytes    = 6 << 20
)

// ErrTransient marks faults worth retrying: network errors, 429s, 5xx.
var ErrTransient = crerr.New("scoring platform transient failure")

// ErrPermanent marks documents that will never resolve: deleted, private
// or unknown matches. The orchestrator must not retry these.
var ErrPermanent = crerr.New("scoring platform permanent failure")

var eventRefRegex = regexp.MustCompile(`/event/([a-zA-Z0-9_]+)`)

type ClientConfig struct {
	HTTPClient        *http.Client
	APIBaseURL        string
	RecapBaseURL      string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client fetches raw recap documents from the scoring platform. It owns
// rate limiting toward the platform, bounded retries for transient faults
// and a circuit breaker; callers only see opaque documents or the
// transient/permanent error split.
type Client struct {
	httpClient     *http.Client
	apiBaseURL     string
	recapBaseURL   string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	limiter        *rate.Limiter
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	apiBaseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	recapBaseURL := strings.TrimRight(strings.TrimSpace(cfg.RecapBaseURL), "/")
	if recapBaseURL == "" {
		recapBaseURL = defaultRecapBaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		apiBaseURL:     apiBaseURL,
		recapBaseURL:   recapBaseURL,
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type matchListEnvelope struct {
	Payload map[string][]matchListEntry `json:"payload"`
}

type matchListEntry struct {
	ID string `json:"id"`
	MI string `json:"mi"`
}

func (e matchListEntry) matchID() string {
	if e.MI != "" {
		return e.MI
	}
	return e.ID
}

// ListEventMatches discovers the match ids for an event. The event may be
// referenced by a full platform URL or a bare event id.
func (c *Client) ListEventMatches(ctx context.Context, eventRef string) ([]string, error) {
	eventID := eventRef
	if m := eventRefRegex.FindStringSubmatch(eventRef); len(m) > 1 {
		eventID = m[1]
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, crerr.Wrap(ErrPermanent, "empty event reference")
	}

	raw, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/api2/event/%s/matches", c.apiBaseURL, eventID))
	if err != nil {
		return nil, err
	}

	var envelope matchListEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, crerr.Wrap(err, "decode event match list")
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, section := range envelope.Payload {
		for _, entry := range section {
			id := entry.matchID()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FetchMatchDocument retrieves the recap players page plus the counts page
// for one match. Both pages are fetched concurrently; a counts failure is
// non-fatal and degrades the document to leg-level data only.
func (c *Client) FetchMatchDocument(ctx context.Context, matchID string) (match.Document, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Document{}, crerr.Wrap(ErrPermanent, "empty match id")
	}

	var (
		body, countsBody []byte
		bodyErr, cntErr  error
	)
	var wg conc.WaitGroup
	wg.Go(func() {
		body, bodyErr = c.do(ctx, http.MethodGet, fmt.Sprintf("%s/players/%s", c.recapBaseURL, matchID))
	})
	wg.Go(func() {
		countsBody, cntErr = c.do(ctx, http.MethodGet, fmt.Sprintf("%s/counts/%s", c.recapBaseURL, matchID))
	})
	wg.Wait()

	if bodyErr != nil {
		return match.Document{}, bodyErr
	}
	if cntErr != nil {
		c.logger.Warn("counts page unavailable, continuing with leg-level data",
			"match_id", matchID,
			"error", cntErr,
		)
		countsBody = nil
	}

	return match.Document{MatchID: matchID, Body: body, CountsBody: countsBody}, nil
}

// do executes one request behind the breaker, the rate limiter and a
// singleflight guard keyed on method+URL.
func (c *Client) do(ctx context.Context, method, fullURL string) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.Warn("scoring platform circuit breaker rejected request", "state", c.breaker.State())
			return nil, crerr.Wrap(ErrTransient, "scoring platform temporarily unavailable")
		}
	}

	out, err, _ := c.flight.Do(method+" "+fullURL, func() (any, error) {
		raw, reqErr := c.execute(ctx, method, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, ErrTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, crerr.Newf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) execute(ctx context.Context, method, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "text/html,application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(ErrTransient, "send request: %v", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Wrapf(ErrTransient, "read response body: %v", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Wrapf(ErrTransient, "platform status=%d", resp.StatusCode)
			default:
				return nil, crerr.Wrapf(ErrPermanent, "platform status=%d", resp.StatusCode)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
