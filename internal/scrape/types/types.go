package types

import (
	"context"

	"jobscout-engine/internal/domain"
)

// Tier splits sources into fetch phases. Primary sources are credential-free
// and scraped; supplemental sources are paid or credentialed APIs and run
// second, so the fast free sources still produce a usable partial result when
// no paid API is configured.
type Tier string

const (
	TierPrimary      Tier = "primary"
	TierSupplemental Tier = "supplemental"
)

// Query is one (source, terms, location) fetch request. It exists for a
// single pass; nothing about it is persisted.
type Query struct {
	Source   string
	Terms    string
	Location string
}

// Fetcher is the capability interface every source adapter implements.
type Fetcher interface {
	Name() string
	Tier() Tier

	// Available reports whether the source can run at all, i.e. its
	// credentials resolve. Credential-free sources always return true.
	Available() bool

	// Fetch performs one upstream call and maps the response into canonical
	// records. Items failing field validation are dropped inside the
	// adapter, never returned partially populated.
	Fetch(ctx context.Context, q Query) ([]domain.Job, error)
}
