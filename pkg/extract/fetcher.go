package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultUserAgent = "price-tracker/1.0 (+https://github.com/price-tracker-go)"

// Fetcher downloads product pages and extracts their price
type Fetcher struct {
	userAgent string
	timeout   time.Duration
	log       *zap.SugaredLogger
}

// NewFetcher creates a fetcher. Empty values use defaults.
func NewFetcher(userAgent string, timeout time.Duration, log *zap.SugaredLogger) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Fetcher{userAgent: userAgent, timeout: timeout, log: log.Named("fetcher")}
}

// FetchPrice visits url and returns the price found on the page. The
// request timeout is shortened to the context deadline when one is set.
func (f *Fetcher) FetchPrice(ctx context.Context, url string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	collector := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(timeout)

	var body []byte
	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch %s (status %d): %w", url, status, err)
	})

	start := time.Now()
	if err := collector.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("visit %s: %w", url, err)
	}
	if fetchErr != nil {
		f.log.Warnw("fetch failed", "url", url, "error", fetchErr)
		return decimal.Zero, fetchErr
	}

	price, err := ExtractPrice(body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", url, err)
	}

	f.log.Infow("price extracted", "url", url, "price", price.StringFixed(2), "duration", time.Since(start))
	return price, nil
}
