// Package probe resolves playable durations for media URLs ahead of
// timeline construction. Probe failures are recovered locally with a fixed
// fallback duration: rendering with approximate timing beats blocking the
// whole pipeline on one bad media file.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/marcusvb/clipflow/internal/shotstack"
)

// FallbackDuration is substituted when a probe fails, in seconds.
const FallbackDuration = 5.0

// ErrInvalidURL is returned for URLs that are not absolute HTTP(S).
var ErrInvalidURL = errors.New("media url must be an absolute http(s) url")

// Prober determines the playable duration of a media URL.
type Prober interface {
	ProbeDuration(ctx context.Context, mediaURL string) (float64, error)
}

// ShotstackProber probes media through the render engine's probe endpoint.
type ShotstackProber struct {
	client  shotstack.Client
	timeout time.Duration
}

// NewShotstackProber creates a prober with a per-probe timeout bound.
func NewShotstackProber(client shotstack.Client, timeout time.Duration) *ShotstackProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShotstackProber{client: client, timeout: timeout}
}

func (p *ShotstackProber) ProbeDuration(ctx context.Context, mediaURL string) (float64, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURL, mediaURL)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	meta, err := p.client.Probe(ctx, mediaURL)
	if err != nil {
		return 0, err
	}
	if meta.Duration <= 0 {
		return 0, fmt.Errorf("probe returned non-positive duration %v for %q", meta.Duration, mediaURL)
	}
	return meta.Duration, nil
}

// Source adapts a Prober into the builder's duration source, fanning probes
// out concurrently with per-item failure isolation.
type Source struct {
	Prober Prober
}

// Durations probes all URLs concurrently and returns one duration per URL
// in input order. A failed probe yields FallbackDuration for that item and
// a warning log; it never cancels the other probes or fails the batch.
func (s Source) Durations(ctx context.Context, urls []string) []float64 {
	durations := make([]float64, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			d, err := s.Prober.ProbeDuration(ctx, u)
			if err != nil {
				slog.Warn("media probe failed, using fallback duration",
					"url", u,
					"fallback_seconds", FallbackDuration,
					"error", err,
				)
				durations[i] = FallbackDuration
				return
			}
			durations[i] = d
		}(i, u)
	}
	wg.Wait()

	return durations
}

// Compile-time check that ShotstackProber implements Prober.
var _ Prober = (*ShotstackProber)(nil)
