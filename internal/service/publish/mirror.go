package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/domain"
	"folio/internal/domain/models/publish"
	"folio/internal/service/blobstore"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const mirrorAttempts = 3

// NormalizeHost lowercases host, strips any scheme, path or port and the
// trailing dot, then validates the remainder as a DNS name.
func NormalizeHost(raw string) (string, error) {
	host := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	err := validation.Validate(host,
		validation.Required,
		validation.Length(1, config.MaxHostnameLength),
		is.DNSName,
	)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hostname %q: %v", domain.ErrValidation, raw, err)
	}
	return host, nil
}

// MirrorReport lists the outcome per normalized host.
type MirrorReport struct {
	Written []string
	Failed  map[string]error
}

// Mirror copies a live pointer to every hostname bound to a site.
type Mirror struct {
	blobs   *blobstore.Store
	cache   cache.PointerCache
	backoff time.Duration
	logger  *slog.Logger
}

// NewMirror creates a pointer mirror. cache may be cache.Noop{}.
func NewMirror(blobs *blobstore.Store, pointerCache cache.PointerCache, logger *slog.Logger) *Mirror {
	return &Mirror{
		blobs:   blobs,
		cache:   pointerCache,
		backoff: 200 * time.Millisecond,
		logger:  logger,
	}
}

// Mirror writes p to hosts/{host}/latest.json for each distinct host. Hosts
// are independent: a failure is retried, then reported, and never affects
// the other hosts.
func (m *Mirror) Mirror(ctx context.Context, hosts []string, p *publish.Pointer) MirrorReport {
	report := MirrorReport{Written: []string{}, Failed: map[string]error{}}
	seen := make(map[string]bool, len(hosts))

	for _, raw := range hosts {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		host, err := NormalizeHost(raw)
		if err != nil {
			report.Failed[raw] = err
			m.logger.Warn("skipping invalid host", "host", raw, "error", err)
			continue
		}
		if seen[host] {
			continue
		}
		seen[host] = true

		if err := m.writeHost(ctx, host, p); err != nil {
			report.Failed[host] = err
			m.logger.Error("mirror pointer failed", "host", host, "build_id", p.BuildID, "error", err)
			continue
		}
		report.Written = append(report.Written, host)

		if err := m.cache.Set(ctx, host, p); err != nil {
			m.logger.Warn("pointer cache prime failed", "host", host, "error", err)
		}
	}
	return report
}

func (m *Mirror) writeHost(ctx context.Context, host string, p *publish.Pointer) error {
	var err error
	for attempt := 1; attempt <= mirrorAttempts; attempt++ {
		if err = m.blobs.WritePointer(ctx, blobstore.HostPointerKey(host), p); err == nil {
			return nil
		}
		if attempt == mirrorAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * m.backoff):
		}
	}
	return err
}

// Unbind removes the host pointer and its cache entry.
func (m *Mirror) Unbind(ctx context.Context, host string) error {
	if err := m.blobs.DeletePointer(ctx, blobstore.HostPointerKey(host)); err != nil {
		return err
	}
	if err := m.cache.Delete(ctx, host); err != nil {
		m.logger.Warn("pointer cache delete failed", "host", host, "error", err)
	}
	return nil
}
