package clipfetch

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

var (
	ErrDuplicateProvider = errors.New("duplicate provider name")
	ErrInvalidProvider   = errors.New("invalid provider")
	// ErrNoMatch means no provider recognised the input URL; resolution aborts
	// before any network access.
	ErrNoMatch         = errors.New("no provider matched the input")
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrFetchFailed means every fallback method for the matched platform was
	// exhausted without producing a usable media URL.
	ErrFetchFailed = errors.New("video not found or inaccessible")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

type MatchFunc = func(string) (Source, error)

// A Provider matches any URL it knows how to handle, giving a Source that can be
// resolved into a downloadable video.
type Provider struct {
	Name     string
	Platform Platform
	Match    MatchFunc
	// Priority of the matcher, lower (including negative) means matching earlier.
	Priority int16
}

func (p Provider) WithPriority(priority int16) Provider {
	p.Priority = priority
	return p
}

// A Match is the result of a Provider successfully matching a URL.
type Match struct {
	ProviderName string
	Source       Source
}

// A ProviderRegistry is a collection of Provider instances which can be used to
// try to match URLs. Providers are tried in ascending priority order, so the
// overall platform check order is fixed by the priorities chosen at registration.
type ProviderRegistry struct {
	providers   []*Provider
	providerMap map[string]*Provider
}

// Add registers a Provider with the ProviderRegistry. Provider.Name and
// Provider.Match must be set, and Provider.Name must be unique within the
// ProviderRegistry.
func (r *ProviderRegistry) Add(p Provider) error {
	if r.providerMap == nil {
		r.providerMap = make(map[string]*Provider)
	}
	if p.Name == "" || p.Match == nil {
		return ErrInvalidProvider
	}
	if _, ok := r.providerMap[p.Name]; ok {
		return ErrDuplicateProvider
	}
	r.providerMap[p.Name] = &p
	r.providers = append(r.providers, r.providerMap[p.Name])
	r.sortByPriority()
	return nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *ProviderRegistry) MustAdd(p Provider) {
	lo.Must0(r.Add(p))
}

// List returns the names of registered providers in priority order.
func (r *ProviderRegistry) List() []string {
	return lo.Map(r.providers, func(p *Provider, _ int) string { return p.Name })
}

// Match a string against each Provider in priority order, or return an error
// wrapping ErrNoMatch.
func (r *ProviderRegistry) Match(s string) (*Match, error) {
	result := multierror.Append(nil, ErrNoMatch)
	for _, p := range r.providers {
		if source, err := p.Match(s); source != nil && err == nil {
			return &Match{ProviderName: p.Name, Source: source}, nil
		} else {
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", p.Name)))
		}
	}
	return nil, result
}

// MatchWith will attempt to match a string against a specific provider.
func (r *ProviderRegistry) MatchWith(name string, s string) (*Match, error) {
	if p, ok := r.providerMap[name]; ok {
		if source, err := p.Match(s); source != nil && err == nil {
			return &Match{ProviderName: p.Name, Source: source}, nil
		} else {
			return nil, ErrNoMatch
		}
	} else {
		return nil, ErrUnknownProvider
	}
}

// SetPriority adjusts the priority of a named Provider.
func (r *ProviderRegistry) SetPriority(name string, priority int16) error {
	if p, ok := r.providerMap[name]; ok {
		p.Priority = priority
		r.sortByPriority()
		return nil
	} else {
		return ErrUnknownProvider
	}
}

func (r *ProviderRegistry) sortByPriority() {
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority < r.providers[j].Priority
	})
}

var DefaultProviderRegistry ProviderRegistry
