package normalize

import (
	"sync"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

// Registry maps extract types to their normalization rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[model.DataType]Rule
}

// Global default registry, populated at init time.
var defaultRegistry = NewRegistry()

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[model.DataType]Rule)}
}

// Register adds a rule to the registry, replacing any previous rule for
// the same type.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Type()] = rule
}

// Get returns the rule for an extract type.
func (r *Registry) Get(t model.DataType) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[t]
	if !ok {
		return nil, cferrors.New(cferrors.CodeUnknownType, "no rule registered for type").
			WithContext("type", string(t))
	}
	return rule, nil
}

// Types lists every registered extract type.
func (r *Registry) Types() []model.DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.DataType, 0, len(r.rules))
	for t := range r.rules {
		out = append(out, t)
	}
	return out
}

// Register adds a rule to the default registry.
func Register(rule Rule) {
	defaultRegistry.Register(rule)
}

// Get returns the rule for a type from the default registry.
func Get(t model.DataType) (Rule, error) {
	return defaultRegistry.Get(t)
}

func init() {
	Register(&eventsRule{})
	Register(&injectionsRule{sorter: "haut"})
	Register(&injectionsRule{sorter: "bas"})
	Register(&traficRule{sorter: "haut"})
	Register(&traficRule{sorter: "bas"})
	Register(&qualiteRule{})
	Register(&fonctionnementRule{})
	Register(&interventionsRule{})
	Register(&mvtStockRule{})
	Register(&inventaireRule{})
	Register(&poidsCarboneRule{})
}
