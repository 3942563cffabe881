// Package calsync keeps the busy intervals of external calendar sources current.
package calsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/ical"
	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
)

// ErrAbandoned marks a sync whose context ended before its result could be applied.
var ErrAbandoned = errors.New("sync abandoned")

type Options struct {
	MaxConcurrent int
	MaxBodyBytes  int64
	Timeout       time.Duration
	UserAgent     string
	Clock         func() time.Time
}

func (o *Options) applyDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = constants.DefaultMaxConcurrent
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = constants.DefaultMaxFeedBytes
	}
	if o.Timeout <= 0 {
		o.Timeout = constants.DefaultSyncTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = constants.SyncUserAgent
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Coordinator fetches sources and hands the parsed intervals to the store.
type Coordinator struct {
	store   storage.SourceStore
	client  *http.Client
	metrics *metrics.Collector
	opts    Options
}

func New(store storage.SourceStore, client *http.Client, m *metrics.Collector, opts Options) *Coordinator {
	opts.applyDefaults()
	if client == nil {
		client = &http.Client{}
	}
	return &Coordinator{
		store:   store,
		client:  client,
		metrics: m,
		opts:    opts,
	}
}

// SyncAll syncs every enabled source concurrently. Each source succeeds or fails
// on its own; the returned outcomes follow the store's source order. The error is
// non-nil only when the source list itself cannot be read.
func (c *Coordinator) SyncAll(ctx context.Context) ([]models.SyncOutcome, error) {
	sources, err := c.store.ListSources()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar sources: %w", err)
	}

	outcomes := make([]models.SyncOutcome, len(sources))
	var g errgroup.Group
	g.SetLimit(c.opts.MaxConcurrent)

	for i, src := range sources {
		if !src.Enabled {
			outcomes[i] = skipped(src)
			continue
		}
		g.Go(func() error {
			outcomes[i] = c.Sync(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

// SyncSource loads a source by id and syncs it.
func (c *Coordinator) SyncSource(ctx context.Context, id string) (models.SyncOutcome, error) {
	src, err := c.store.GetSource(id)
	if err != nil {
		return models.SyncOutcome{}, err
	}
	return c.Sync(ctx, src), nil
}

// Sync fetches one source and records the result. Failures are reported in the
// outcome and leave the source's previous intervals in place.
func (c *Coordinator) Sync(ctx context.Context, src models.CalendarSource) models.SyncOutcome {
	if !src.Enabled {
		return skipped(src)
	}

	started := time.Now()
	outcome := models.SyncOutcome{SourceID: src.ID, SourceName: src.Name}

	if err := ctx.Err(); err != nil {
		outcome.Status = models.FetchStatusError
		outcome.Error = fmt.Sprintf("%v: %v", ErrAbandoned, err)
		return outcome
	}

	result := c.fetch(ctx, src)
	outcome.SyncedAt = result.SyncedAt
	outcome.Status = result.Status
	outcome.Error = result.Error
	outcome.IntervalCount = len(result.Intervals)
	outcome.NotModified = result.Status == models.FetchStatusOK && !result.Replace

	// A fetch that finished after the caller gave up must not overwrite state.
	if err := ctx.Err(); err != nil {
		outcome.Status = models.FetchStatusError
		outcome.Error = fmt.Sprintf("%v: %v", ErrAbandoned, err)
		logger.Warn("Calendar sync abandoned", "source", src.Name, "error", err)
		return outcome
	}

	if err := c.store.RecordSyncResult(result); err != nil {
		outcome.Status = models.FetchStatusError
		outcome.Error = fmt.Sprintf("failed to store sync result: %v", err)
		logger.Error("Failed to record calendar sync", "source", src.Name, "error", err)
		c.metrics.RecordSync(outcome, time.Since(started))
		return outcome
	}

	c.metrics.RecordSync(outcome, time.Since(started))
	switch {
	case outcome.Status == models.FetchStatusError:
		logger.Warn("Calendar sync failed", "source", src.Name, "error", outcome.Error)
	case outcome.NotModified:
		logger.Debug("Calendar source not modified", "source", src.Name)
	default:
		logger.Info("Calendar source synced", "source", src.Name, "intervals", outcome.IntervalCount)
	}
	return outcome
}

func (c *Coordinator) fetch(ctx context.Context, src models.CalendarSource) models.SyncResult {
	result := models.SyncResult{
		SourceID: src.ID,
		Status:   models.FetchStatusError,
	}
	fail := func(format string, args ...any) models.SyncResult {
		result.SyncedAt = c.opts.Clock()
		result.Error = fmt.Sprintf(format, args...)
		return result
	}

	target, err := FetchURL(src.URL)
	if err != nil {
		return fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fail("failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	applyValidator(req, src.Validator)

	resp, err := c.client.Do(req)
	if err != nil {
		return fail("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		result.SyncedAt = c.opts.Clock()
		result.Status = models.FetchStatusOK
		result.Validator = validatorFrom(resp.Header)
		if result.Validator == "" {
			result.Validator = src.Validator
		}
		return result
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return fail("failed to read response: %v", err)
	}
	if int64(len(body)) > c.opts.MaxBodyBytes {
		return fail("response exceeds %d bytes", c.opts.MaxBodyBytes)
	}
	document := string(body)
	if !strings.Contains(document, "BEGIN:VCALENDAR") {
		return fail("response is not a calendar document")
	}

	result.SyncedAt = c.opts.Clock()
	result.Status = models.FetchStatusOK
	result.Validator = validatorFrom(resp.Header)
	result.Intervals = ical.Parse(document, src.ID)
	result.Replace = true
	return result
}

// FetchURL maps a source URL to the URL actually requested; webcal schemes are fetched over https.
func FetchURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid source URL: %v", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "webcal", "webcals":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported source URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("source URL %q has no host", raw)
	}
	return u.String(), nil
}

func applyValidator(req *http.Request, validator string) {
	switch {
	case strings.HasPrefix(validator, constants.ValidatorETagPrefix):
		req.Header.Set("If-None-Match", strings.TrimPrefix(validator, constants.ValidatorETagPrefix))
	case strings.HasPrefix(validator, constants.ValidatorModifiedFrom):
		req.Header.Set("If-Modified-Since", strings.TrimPrefix(validator, constants.ValidatorModifiedFrom))
	}
}

func validatorFrom(h http.Header) string {
	if etag := h.Get("ETag"); etag != "" {
		return constants.ValidatorETagPrefix + etag
	}
	if lm := h.Get("Last-Modified"); lm != "" {
		return constants.ValidatorModifiedFrom + lm
	}
	return ""
}

func skipped(src models.CalendarSource) models.SyncOutcome {
	return models.SyncOutcome{
		SourceID:   src.ID,
		SourceName: src.Name,
		Status:     src.FetchStatus,
		Skipped:    true,
	}
}
