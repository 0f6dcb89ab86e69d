package gomon

import (
	"errors"
	"fmt"
)

// Errors reported by Repository.FindByLabel.
var (
	// ErrEmptyLabel is returned when a monitor label is required but
	// empty.
	ErrEmptyLabel = errors.New("gomon: monitor label is empty")

	// ErrDuplicateLabel is returned when several monitors are
	// registered under a label that is expected to be unique.
	ErrDuplicateLabel = errors.New("gomon: duplicate monitor label")
)

// Registry is the read and reset surface of a monitor store. *Factory
// implements it; tests may substitute their own.
type Registry interface {
	// ListAll returns every registered monitor in iteration order.
	// A nil result is treated as an empty registry.
	ListAll() []*Monitor

	// Reset removes every registered monitor.
	Reset()
}

// Specification is a predicate over monitors, used to parametrize
// Repository.Find.
type Specification func(*Monitor) bool

// LabelEquals is the specification satisfied by monitors registered
// under exactly the given label.
func LabelEquals(label string) Specification {
	return func(mon *Monitor) bool {
		return mon.Label() == label
	}
}

// Repository is a thin query facade over a monitor registry. It keeps
// no state of its own: every call reads through to the registry, so
// results always reflect the live monitor set. It adds no locking;
// concurrent use is exactly as safe as the underlying registry.
type Repository struct {
	registry Registry
}

// NewRepository creates a repository over the given registry.
func NewRepository(registry Registry) *Repository {
	return &Repository{registry: registry}
}

// GetAll returns all monitors currently in the registry, or an empty
// slice when there are none.
func (r *Repository) GetAll() []*Monitor {
	monitors := r.registry.ListAll()
	if monitors == nil {
		return []*Monitor{}
	}
	return monitors
}

// Count returns the number of monitors currently in the registry.
func (r *Repository) Count() int {
	return len(r.GetAll())
}

// Clear removes all monitors. The reset is delegated to the registry
// and is visible to every consumer of it.
func (r *Repository) Clear() {
	r.registry.Reset()
}

// Find returns the monitors satisfying spec, preserving registry
// iteration order.
func (r *Repository) Find(spec Specification) []*Monitor {
	result := []*Monitor{}
	for _, mon := range r.GetAll() {
		if spec(mon) {
			result = append(result, mon)
		}
	}
	return result
}

// FindByLabel returns the single monitor registered under label, or
// nil when there is none. It returns ErrEmptyLabel when label is empty
// and an error wrapping ErrDuplicateLabel when more than one monitor
// shares the label, since labels are expected to be unique here.
func (r *Repository) FindByLabel(label string) (*Monitor, error) {
	if label == "" {
		return nil, ErrEmptyLabel
	}

	monitors := r.Find(LabelEquals(label))
	if len(monitors) > 1 {
		return nil, fmt.Errorf("%w: %d monitors registered under %q",
			ErrDuplicateLabel, len(monitors), label)
	}
	if len(monitors) == 0 {
		return nil, nil
	}
	return monitors[0], nil
}
