// Package credentials selects the bearer token used for a forwarded status.
package credentials

import "sort"

// DefaultAlias names the credential used when no alias applies.
const DefaultAlias = "default"

// Resolver maps token aliases to credentials. It is immutable once built.
type Resolver struct {
	defaultToken string
	aliases      map[string]string
}

// NewResolver builds a resolver from the default credential and an alias map.
// Aliases with an empty token are dropped so they resolve to the default.
func NewResolver(defaultToken string, aliases map[string]string) *Resolver {
	copied := make(map[string]string, len(aliases))
	for name, token := range aliases {
		if name == "" || token == "" {
			continue
		}
		copied[name] = token
	}
	return &Resolver{
		defaultToken: defaultToken,
		aliases:      copied,
	}
}

// Resolve returns the credential for tokenName and the alias that supplied it.
// An empty or unknown tokenName resolves to the default credential.
func (r *Resolver) Resolve(tokenName string) (token string, alias string) {
	if tokenName != "" {
		if t, ok := r.aliases[tokenName]; ok {
			return t, tokenName
		}
	}
	return r.defaultToken, DefaultAlias
}

// Known reports whether tokenName is a configured alias.
func (r *Resolver) Known(tokenName string) bool {
	_, ok := r.aliases[tokenName]
	return ok
}

// Aliases returns the configured alias names in sorted order.
func (r *Resolver) Aliases() []string {
	names := make([]string, 0, len(r.aliases))
	for name := range r.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
