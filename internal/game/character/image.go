package character

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/dice"
)

// ImageResolver picks an image URL for a new character. Implementations never fail.
type ImageResolver interface {
	Resolve(ctx context.Context, race, nationality, profession string) string
}

const imageVariants = 10

var genericImages = []string{
	"generic/1.jpg",
	"generic/2.jpg",
	"generic/3.jpg",
	"generic/4.jpg",
	"generic/5.jpg",
}

// StaticImageResolver builds a candidate path without probing the network.
type StaticImageResolver struct {
	Base string
	Src  dice.Source
}

// Resolve returns {base}/{race}/{nationality display}/{profession}/{variant}.jpg
// with a uniformly drawn variant.
func (s StaticImageResolver) Resolve(_ context.Context, race, nationality, profession string) string {
	variant := 1
	if s.Src != nil {
		variant = dice.Range(s.Src, 1, imageVariants)
	}
	return candidateURL(s.Base, race, nationality, profession, variant)
}

func candidateURL(base, race, nationality, profession string, variant int) string {
	return joinURL(base,
		url.PathEscape(race),
		url.PathEscape(NationalityDisplay(nationality)),
		url.PathEscape(profession),
		fmt.Sprintf("%d.jpg", variant),
	)
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

// HTTPImageResolver probes candidate URLs with HEAD requests until one exists.
type HTTPImageResolver struct {
	base    string
	client  *http.Client
	timeout time.Duration
	budget  time.Duration
	src     dice.Source
	logger  *zap.Logger
}

// NewHTTPImageResolver creates a resolver rooted at base. Each probe is bounded
// by timeout and a whole Resolve by budget. Redirects are treated as success
// and not followed.
//
// Precondition: base must be an absolute URL; timeout and budget must be positive.
func NewHTTPImageResolver(base string, timeout, budget time.Duration, src dice.Source, logger *zap.Logger) *HTTPImageResolver {
	return &HTTPImageResolver{
		base: base,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		timeout: timeout,
		budget:  budget,
		src:     src,
		logger:  logger,
	}
}

type probeResult int

const (
	probeFound probeResult = iota
	probeMissing
	probeUnreachable
)

// Resolve returns the first existing variant in random order. When no variant
// exists it falls back, in order, to: the unverified variant 1 if the CDN never
// answered, the race fallback images, and a random generic image. Once the
// budget is spent no further probes are made.
func (h *HTTPImageResolver) Resolve(ctx context.Context, race, nationality, profession string) string {
	ctx, cancel := context.WithTimeout(ctx, h.budget)
	defer cancel()

	variants := make([]int, imageVariants)
	for i := range variants {
		variants[i] = i + 1
	}
	variants = dice.Shuffle(h.src, variants)

	answered := false
	for _, v := range variants {
		u := candidateURL(h.base, race, nationality, profession, v)
		switch h.probe(ctx, u) {
		case probeFound:
			return u
		case probeMissing:
			answered = true
		}
		if ctx.Err() != nil {
			break
		}
	}
	if !answered {
		return candidateURL(h.base, race, nationality, profession, 1)
	}

	for i := 1; i <= 3 && ctx.Err() == nil; i++ {
		u := joinURL(h.base, url.PathEscape(race), fmt.Sprintf("fallback_%d.jpg", i))
		if h.probe(ctx, u) == probeFound {
			return u
		}
	}
	h.logger.Debug("no image found, using generic",
		zap.String("race", race),
		zap.String("nationality", nationality),
		zap.String("profession", profession),
	)
	return joinURL(h.base, dice.Pick(h.src, genericImages))
}

func (h *HTTPImageResolver) probe(ctx context.Context, u string) probeResult {
	pctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(pctx, http.MethodHead, u, nil)
	if err != nil {
		return probeUnreachable
	}
	resp, err := h.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			h.logger.Debug("image probe failed", zap.String("url", u), zap.Error(err))
		}
		return probeUnreachable
	}
	resp.Body.Close()
	if resp.StatusCode < 400 {
		return probeFound
	}
	return probeMissing
}
