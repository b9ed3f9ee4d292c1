package adapters

import (
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"taskforge/internal/ports"
)

// LanguageRegistry holds the language plugins compiled into the tool,
// keyed by language name. Registration order is preserved so task
// listings and ambiguity reports stay stable.
type LanguageRegistry struct {
	mu     sync.RWMutex
	byName map[string]ports.LanguagePort
	order  []string
}

func NewLanguageRegistry() *LanguageRegistry {
	return &LanguageRegistry{byName: map[string]ports.LanguagePort{}}
}

func (r *LanguageRegistry) Register(language ports.LanguagePort) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := language.Name()
	if _, exists := r.byName[name]; exists {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("a language named %q is already registered", name))
	}
	r.byName[name] = language
	r.order = append(r.order, name)
	return nil
}

func (r *LanguageRegistry) Get(name string) (ports.LanguagePort, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	language, ok := r.byName[name]
	return language, ok
}

func (r *LanguageRegistry) All() []ports.LanguagePort {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.LanguagePort, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Select returns a registry restricted to the named languages, in the
// given order. Naming a language that is not registered is an error;
// the project asked for a language the tool does not carry.
func (r *LanguageRegistry) Select(names []string) (*LanguageRegistry, error) {
	selected := NewLanguageRegistry()
	for _, name := range names {
		language, ok := r.Get(name)
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("there is no language named %q", name))
		}
		if err := selected.Register(language); err != nil {
			return nil, err
		}
	}
	return selected, nil
}
