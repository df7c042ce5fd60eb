// Package catalog resolves free-text product references against the live
// product catalog.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/port"
)

var tracer = otel.Tracer("smart-sales-agent-go/catalog")

// Resolver matches customer text to catalog products. Every call reads
// the catalog live so admin price changes take effect immediately; the
// catalog is small enough that caching would only buy staleness.
type Resolver struct {
	store     port.CatalogStore
	threshold float64
	logger    *zap.Logger
}

func NewResolver(store port.CatalogStore, threshold float64, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:     store,
		threshold: threshold,
		logger:    logger,
	}
}

type scoredProduct struct {
	product domain.Product
	score   float64
}

// Resolve finds the catalog product best matching text. Matching runs in
// two passes: exact containment first (either string contains the other,
// case-insensitive), then fuzzy similarity over word windows. Candidates
// below the threshold are rejected with ErrProductNotFound rather than
// guessed at.
func (r *Resolver) Resolve(ctx context.Context, text string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.Resolve")
	defer span.End()

	normalized := normalize(text)
	if normalized == "" {
		return nil, &domain.ErrProductNotFound{Reference: text}
	}

	products, err := r.store.ReadCatalog(ctx)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "read catalog", Err: err}
	}
	if len(products) == 0 {
		return nil, &domain.ErrProductNotFound{Reference: text}
	}

	candidates := make([]scoredProduct, 0, len(products))
	for _, p := range products {
		name := normalize(p.Name)
		if name == "" {
			continue
		}
		var score float64
		if strings.Contains(normalized, name) || strings.Contains(name, normalized) {
			score = 1.0
		} else {
			score = windowSimilarity(normalized, name)
		}
		if score >= r.threshold {
			candidates = append(candidates, scoredProduct{product: p, score: score})
		}
	}

	if len(candidates) == 0 {
		r.logger.Debug("no product matched",
			zap.String("reference", text),
			zap.Int("catalog_size", len(products)))
		return nil, &domain.ErrProductNotFound{Reference: text}
	}

	// Deterministic pick: best score, then shortest name, then name.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		li, lj := len(candidates[i].product.Name), len(candidates[j].product.Name)
		if li != lj {
			return li < lj
		}
		return candidates[i].product.Name < candidates[j].product.Name
	})

	best := candidates[0]
	r.logger.Debug("product resolved",
		zap.String("reference", text),
		zap.String("product", best.product.Name),
		zap.Float64("score", best.score))

	p := best.product
	return &p, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// windowSimilarity slides a window of len(words(name)) words over the
// text and returns the best normalized Levenshtein similarity. Matching
// windows instead of the whole message keeps long sentences from
// drowning short product names.
func windowSimilarity(text, name string) float64 {
	words := strings.Fields(text)
	nameWords := strings.Fields(name)
	if len(words) == 0 || len(nameWords) == 0 {
		return 0
	}

	window := len(nameWords)
	if window > len(words) {
		return similarity(strings.Join(words, " "), name)
	}

	best := 0.0
	for i := 0; i+window <= len(words); i++ {
		candidate := strings.Join(words[i:i+window], " ")
		if s := similarity(candidate, name); s > best {
			best = s
		}
	}
	return best
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}
