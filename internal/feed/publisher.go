// Package feed publishes the current plan as a token-gated calendar subscription.
package feed

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/ical"
	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/planner"
	"github.com/julianstephens/weekcal/internal/storage"
)

// ErrUnauthorized is returned for unknown, malformed and expired tokens alike.
var ErrUnauthorized = errors.New("feed token is invalid or expired")

const tokenBytes = 32

// Planner computes the plan a feed renders.
type Planner interface {
	Plan(ctx context.Context, q planner.PlanQuery, now time.Time) (models.WeekPlan, error)
}

// Store persists token hashes and the revision sequence ledger.
type Store interface {
	storage.TokenStore
	storage.RevisionLedger
}

type Options struct {
	// BaseURL is the public http(s) root feed links are built from.
	BaseURL      string
	Refresh      time.Duration
	DefaultTTL   time.Duration
	CalendarName string
	Clock        func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Refresh <= 0 {
		o.Refresh = constants.FeedRefreshInterval
	}
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = constants.DefaultFeedTokenTTL
	}
	if o.CalendarName == "" {
		o.CalendarName = constants.FeedCalendarName
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
}

type Publisher struct {
	store   Store
	planner Planner
	metrics *metrics.Collector
	opts    Options
}

func NewPublisher(store Store, p Planner, m *metrics.Collector, opts Options) *Publisher {
	opts.applyDefaults()
	return &Publisher{store: store, planner: p, metrics: m, opts: opts}
}

// FeedResponse is a rendered feed plus the metadata sent alongside it.
type FeedResponse struct {
	Body        string
	ETag        string
	GeneratedAt time.Time
	Revision    string
	Sequence    int
}

// Header returns the response headers for the document.
func (r FeedResponse) Header() http.Header {
	h := http.Header{}
	h.Set("Content-Type", constants.FeedContentType)
	h.Set("Cache-Control", "no-store")
	h.Set("ETag", r.ETag)
	h.Set("X-Generated-At", r.GeneratedAt.UTC().Format(time.RFC3339))
	h.Set("X-Plan-Revision", r.Revision)
	return h
}

// IssueToken creates a feed capability valid for ttl (the default TTL when zero).
// The raw token is only ever returned here; the store keeps its hash.
func (p *Publisher) IssueToken(ctx context.Context, ttl time.Duration) (models.IssuedToken, error) {
	if err := ctx.Err(); err != nil {
		return models.IssuedToken{}, err
	}
	if ttl < 0 {
		return models.IssuedToken{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if ttl == 0 {
		ttl = p.opts.DefaultTTL
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return models.IssuedToken{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := p.opts.Clock().UTC().Truncate(time.Second)
	record := models.FeedToken{
		Hash:      HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := p.store.SaveToken(record); err != nil {
		return models.IssuedToken{}, fmt.Errorf("failed to save feed token: %w", err)
	}

	httpsURL, webcalURL, err := p.URLs(token)
	if err != nil {
		return models.IssuedToken{}, err
	}

	p.metrics.RecordTokenIssued()
	logger.Info("Feed token issued", "expires_at", record.ExpiresAt)
	return models.IssuedToken{
		Token:     token,
		HTTPSURL:  httpsURL,
		WebcalURL: webcalURL,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// URLs builds the subscription links for token.
func (p *Publisher) URLs(token string) (string, string, error) {
	base, err := url.Parse(p.opts.BaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return "", "", fmt.Errorf("feed base URL %q must be an absolute http(s) URL", p.opts.BaseURL)
	}
	httpsURL := base.JoinPath("feed", token+".ics")
	webcalURL := *httpsURL
	webcalURL.Scheme = "webcal"
	return httpsURL.String(), webcalURL.String(), nil
}

// Authorize checks token against the store. Any failure is ErrUnauthorized.
func (p *Publisher) Authorize(ctx context.Context, token string) (models.FeedToken, error) {
	if err := ctx.Err(); err != nil {
		return models.FeedToken{}, err
	}
	if token == "" {
		return models.FeedToken{}, ErrUnauthorized
	}
	record, err := p.store.GetToken(HashToken(token))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("Feed token lookup failed", "error", err)
		}
		return models.FeedToken{}, ErrUnauthorized
	}
	if record.Expired(p.opts.Clock()) {
		return models.FeedToken{}, ErrUnauthorized
	}
	return record, nil
}

// ServeFeed validates token and renders the plan for the requested window.
// An empty startDate and zero days take the planner defaults.
func (p *Publisher) ServeFeed(ctx context.Context, token, startDate string, days int) (FeedResponse, error) {
	if _, err := p.Authorize(ctx, token); err != nil {
		return FeedResponse{}, err
	}
	return p.Document(ctx, startDate, days)
}

// Document renders the plan for the window without a token check; callers must
// have authorized the request.
func (p *Publisher) Document(ctx context.Context, startDate string, days int) (FeedResponse, error) {
	now := p.opts.Clock()
	plan, err := p.planner.Plan(ctx, planner.PlanQuery{StartDate: startDate, Days: days}, now)
	if err != nil {
		return FeedResponse{}, err
	}

	content := p.contentRevision(plan)
	seq, err := p.store.SequenceForRevision(content, plan.GeneratedAt)
	if err != nil {
		return FeedResponse{}, fmt.Errorf("failed to resolve feed sequence: %w", err)
	}

	body := ical.Render(plan.Items, ical.FeedMeta{
		Name:        p.opts.CalendarName,
		GeneratedAt: plan.GeneratedAt,
		Revision:    plan.Revision,
		Sequence:    seq,
		Refresh:     p.opts.Refresh,
	})
	return FeedResponse{
		Body:        body,
		ETag:        fmt.Sprintf(`"%s-%d"`, content, seq),
		GeneratedAt: plan.GeneratedAt,
		Revision:    plan.Revision,
		Sequence:    seq,
	}, nil
}

// contentRevision hashes everything a subscriber sees in the events, so a renamed
// task changes the ETag and sequence even when its placement does not.
func (p *Publisher) contentRevision(plan models.WeekPlan) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", plan.Revision, p.opts.CalendarName)
	for _, item := range plan.Items {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%d\x00", item.UID, item.Title, item.Reason,
			item.Start.Unix(), item.End.Unix())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// RevokeToken deletes the capability for a raw token.
func (p *Publisher) RevokeToken(ctx context.Context, token string) error {
	return p.RevokeHash(ctx, HashToken(token))
}

// RevokeHash deletes a token by its stored hash, for tokens whose raw value is lost.
func (p *Publisher) RevokeHash(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.store.DeleteToken(hash); err != nil {
		return fmt.Errorf("failed to revoke feed token: %w", err)
	}
	logger.Info("Feed token revoked", "hash", ShortHash(hash))
	return nil
}

// PruneExpired removes tokens that have expired and reports how many were deleted.
func (p *Publisher) PruneExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.store.PruneTokens(p.opts.Clock())
	if err != nil {
		return 0, fmt.Errorf("failed to prune feed tokens: %w", err)
	}
	if n > 0 {
		logger.Info("Expired feed tokens pruned", "count", n)
	}
	return n, nil
}

// HashToken is the stored form of a raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ShortHash abbreviates a token hash for display and logs.
func ShortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
