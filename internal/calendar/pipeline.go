package calendar

import (
	"context"
	"fmt"
)

// Pipeline resolves an address, downloads its calendar page and reduces it to
// the next pickup per waste type. It holds no mutable state.
type Pipeline struct {
	resolver *Resolver
	fetcher  Fetcher
}

// NewPipeline builds a Pipeline for the given provider.
func NewPipeline(p ProviderDescriptor, f Fetcher) (*Pipeline, error) {
	r, err := NewResolver(p.LookupURL, f)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.Key, err)
	}
	return &Pipeline{resolver: r, fetcher: f}, nil
}

// Calendar runs every step but the reduction and returns the calendar page
// URL with all associations found on it.
func (p *Pipeline) Calendar(ctx context.Context, address string, ref Date) (string, []Association, error) {
	u, err := p.resolver.Resolve(ctx, address)
	if err != nil {
		return "", nil, err
	}

	page, err := p.fetcher.Fetch(ctx, u.String())
	if err != nil {
		return "", nil, fmt.Errorf("calendar page: %w", err)
	}

	assocs, err := Extract(string(page), ref)
	if err != nil {
		return "", nil, fmt.Errorf("calendar page %s: %w", u, err)
	}
	return u.String(), assocs, nil
}

// Run returns the next pickup date per waste type for address, relative to ref.
func (p *Pipeline) Run(ctx context.Context, address string, ref Date) (Schedule, error) {
	_, assocs, err := p.Calendar(ctx, address, ref)
	if err != nil {
		return nil, err
	}
	return NextPickups(assocs, ref), nil
}
