// Package relevance disambiguates which game a question is about and drops
// candidates indexed from other games' rulebooks.
package relevance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Outcome tells how Apply treated the candidates.
type Outcome string

const (
	// Identity means no game was recognised and candidates were returned as-is.
	Identity Outcome = "identity"
	// Filtered means at least one candidate matched a recognised game.
	Filtered Outcome = "filtered"
	// Fallback means a game was recognised but no candidate matched it,
	// so the unfiltered candidates were returned.
	Fallback Outcome = "fallback"
)

type rule struct {
	id       string
	keywords []string
	marker   string
}

// Filter is an immutable keyword rule table, safe for concurrent use.
type Filter struct {
	rules []rule
}

// New builds a filter from the game table. Keywords and markers are lower-cased once here.
func New(games []domain.Game) (*Filter, error) {
	rules := make([]rule, 0, len(games))
	seen := make(map[string]struct{}, len(games))
	for i, g := range games {
		if g.ID == "" {
			return nil, fmt.Errorf("game %d: id is required", i)
		}
		if _, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %q", g.ID)
		}
		seen[g.ID] = struct{}{}

		marker := strings.ToLower(strings.TrimSpace(g.SourceMarker))
		if marker == "" {
			return nil, fmt.Errorf("game %q: source marker is required", g.ID)
		}

		kws := make([]string, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("game %q: at least one keyword is required", g.ID)
		}

		rules = append(rules, rule{id: g.ID, keywords: kws, marker: marker})
	}
	if len(rules) == 0 {
		return nil, errors.New("at least one game is required")
	}
	return &Filter{rules: rules}, nil
}

// Context is the set of games recognised in a question, in table order.
type Context struct {
	games []string
	rules []rule
}

// Games returns the ids of the recognised games.
func (c Context) Games() []string { return c.games }

// Matches reports whether the game with the given id was recognised.
func (c Context) Matches(id string) bool {
	for _, g := range c.games {
		if g == id {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no game was recognised.
func (c Context) IsEmpty() bool { return len(c.games) == 0 }

// Detect lower-cases the question and matches every game whose keyword occurs in it.
// Games are not mutually exclusive.
func (f *Filter) Detect(query string) Context {
	q := strings.ToLower(query)
	var detected Context
	for _, r := range f.rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				detected.games = append(detected.games, r.id)
				detected.rules = append(detected.rules, r)
				break
			}
		}
	}
	return detected
}

// Apply keeps candidates whose source belongs to a recognised game, preserving order.
// Falls back to the unfiltered candidates when nothing matches.
func (f *Filter) Apply(query string, candidates []domain.ScoredDocument) []domain.ScoredDocument {
	kept, _ := f.Select(f.Detect(query), candidates)
	return kept
}

// Select applies an already detected context and reports how the candidates were treated.
func (f *Filter) Select(detected Context, candidates []domain.ScoredDocument) ([]domain.ScoredDocument, Outcome) {
	if detected.IsEmpty() {
		return candidates, Identity
	}

	var kept []domain.ScoredDocument
	for _, c := range candidates {
		source := strings.ToLower(c.Source)
		for _, r := range detected.rules {
			if strings.Contains(source, r.marker) {
				kept = append(kept, c)
				break
			}
		}
	}

	if len(kept) == 0 {
		return candidates, Fallback
	}
	return kept, Filtered
}
