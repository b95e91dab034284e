package tool

import (
	"fmt"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
)

type entry struct {
	desc      contractx.ToolDescriptor
	validator *argValidator
}

// Registry maps tool names to descriptors. Registration order is kept and
// is the order Schemas reports.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*entry
}

var _ contractx.ToolCatalog = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{tools: map[string]*entry{}}
}

func (r *Registry) Register(desc contractx.ToolDescriptor) error {
	desc.Name = strings.TrimSpace(desc.Name)
	if desc.Name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if desc.Func == nil {
		return fmt.Errorf("%w: tool=%s has no function", contractx.ErrValidation, desc.Name)
	}
	desc.Params = append([]contractx.ParamSpec(nil), desc.Params...)

	validator, err := newArgValidator(desc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, desc.Name)
	}
	r.tools[desc.Name] = &entry{desc: desc, validator: validator}
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister registers every descriptor and panics on the first failure.
func (r *Registry) MustRegister(descs ...contractx.ToolDescriptor) {
	for _, desc := range descs {
		if err := r.Register(desc); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Resolve(name string) (contractx.ToolDescriptor, error) {
	e, err := r.resolve(name)
	if err != nil {
		return contractx.ToolDescriptor{}, err
	}
	return e.desc, nil
}

func (r *Registry) resolve(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, name)
	}
	return e, nil
}

// Schemas returns the registered descriptors in registration order.
func (r *Registry) Schemas() []contractx.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contractx.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].desc)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
