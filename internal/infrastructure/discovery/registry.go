// Package discovery implements the item source boundary: it pulls the
// current item list from configured feeds via pluggable scanner
// strategies.
package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"FeedScreener/internal/config"
	"FeedScreener/internal/domain"
	"FeedScreener/internal/ports"
)

// Request carries all parameters required to execute one feed scan.
type Request struct {
	FeedName  string
	URL       string
	Selectors config.SelectorConfig
	Options   map[string]string
}

// Scanner captures a single extraction strategy.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Item, error)
}

// Registry keeps a mapping from scanner names to implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// Source implements ports.ItemSource over registered strategies.
type Source struct {
	registry *Registry
	feeds    []config.FeedConfig
	logger   *slog.Logger
}

var _ ports.ItemSource = (*Source)(nil)

// NewSource wires the scanner registry with config-defined feeds.
func NewSource(reg *Registry, feeds []config.FeedConfig, log *slog.Logger) *Source {
	return &Source{registry: reg, feeds: feeds, logger: log}
}

// FetchItems iterates over configured feeds, executes their scanners,
// and returns the deduplicated aggregate in feed order.
func (s *Source) FetchItems(ctx context.Context) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	var aggregated []domain.Item
	seen := map[string]struct{}{}
	for _, feed := range s.feeds {
		if feed.URL == "" {
			continue
		}
		strategy, err := s.registry.Resolve(feed.Scanner)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
		}

		req := Request{
			FeedName:  feed.Name,
			URL:       feed.URL,
			Selectors: feed.Selectors,
			Options:   feed.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan feed %s: %w", feed.Name, err)
		}

		for _, item := range results {
			if _, dup := seen[item.Key()]; dup {
				continue
			}
			seen[item.Key()] = struct{}{}
			aggregated = append(aggregated, item)
		}
		s.debug("feed produced items", "feed", feed.Name, "count", len(results))
	}

	s.debug("discovery done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
