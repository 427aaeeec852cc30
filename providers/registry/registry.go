// Package registry maps provider names to their adapter implementations.
//
// The provider set is closed and decided at compile time: adding a provider is
// a code change, not a plugin mechanism. Resolution validates that the
// provider's credential is present before handing out an adapter, and caches
// resolved adapters so credentials are read exactly once per process.
package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/chaicli/chai/providers/ai"
	"github.com/chaicli/chai/providers/ai/anthropic"
	"github.com/chaicli/chai/providers/ai/gemini"
	"github.com/chaicli/chai/providers/ai/mistral"
	"github.com/chaicli/chai/providers/ai/openai"
)

// entry describes one registered provider: the environment variable carrying
// its credential and the factory constructing its adapter.
type entry struct {
	envKey string
	build  func() ai.Provider
}

var entries = map[string]entry{
	"anthropic": {envKey: "ANTHROPIC_API_KEY", build: func() ai.Provider { return anthropic.New() }},
	"openai":    {envKey: "OPENAI_API_KEY", build: func() ai.Provider { return openai.New() }},
	"google":    {envKey: "GEMINI_API_KEY", build: func() ai.Provider { return gemini.New() }},
	"mistral":   {envKey: "MISTRAL_API_KEY", build: func() ai.Provider { return mistral.New() }},
}

// UnknownProviderError reports a resolution attempt for a name outside the
// registered set. It is fatal at startup.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q (available: %s)", e.Name, strings.Join(Names(), ", "))
}

// MissingCredentialError reports that a registered provider cannot be used
// because its API-key environment variable is unset. It is fatal at startup.
type MissingCredentialError struct {
	Provider string
	EnvKey   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("provider %q is not configured: set %s", e.Provider, e.EnvKey)
}

// Registry resolves provider names to adapter instances. The zero value is
// not usable; construct with New.
type Registry struct {
	mu       sync.Mutex
	resolved map[string]ai.Provider
}

// New returns an empty Registry ready for resolution.
func New() *Registry {
	return &Registry{resolved: map[string]ai.Provider{}}
}

// Resolve returns the adapter for name. The first successful resolution
// constructs the adapter (reading its credential from the environment); later
// calls return the same cached instance without re-reading credentials.
// Returns *UnknownProviderError for names outside the registered set and
// *MissingCredentialError when the credential is absent.
func (r *Registry) Resolve(name string) (ai.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, ok := r.resolved[name]; ok {
		return provider, nil
	}

	ent, ok := entries[name]
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}

	if os.Getenv(ent.envKey) == "" {
		return nil, &MissingCredentialError{Provider: name, EnvKey: ent.envKey}
	}

	provider := ent.build()
	r.resolved[name] = provider
	return provider, nil
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvKey returns the credential environment variable for a registered
// provider, or the empty string when the name is unknown.
func EnvKey(name string) string {
	return entries[name].envKey
}

// Configured reports whether the provider's credential is present in the
// environment. Unknown names report false.
func Configured(name string) bool {
	ent, ok := entries[name]
	return ok && os.Getenv(ent.envKey) != ""
}
