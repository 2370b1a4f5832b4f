package hook

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/tas-replay/internal/host"
)

// Interceptor включает и выключает перехват обеих точек входа тика одного владельца
type Interceptor struct {
	registry *Registry
	owner    string
	host     host.Host

	mu      sync.Mutex
	enabled bool
}

// NewInterceptor создаёт перехватчик точек входа хоста h
func NewInterceptor(registry *Registry, owner string, h host.Host) *Interceptor {
	return &Interceptor{registry: registry, owner: owner, host: h}
}

// Enable перехватывает TimeStep (onTime) и InputSample (onInput).
// Если вторая точка не перехватилась, первая откатывается.
func (i *Interceptor) Enable(onTime, onInput func()) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.enabled {
		return nil
	}

	if err := i.registry.Enable(i.owner, host.TimeStep, i.host.Entry(host.TimeStep), onTime); err != nil {
		return err
	}
	if err := i.registry.Enable(i.owner, host.InputSample, i.host.Entry(host.InputSample), onInput); err != nil {
		if rbErr := i.registry.Disable(i.owner, host.TimeStep); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("откат %s: %w", host.TimeStep, rbErr))
		}
		return err
	}

	i.enabled = true
	return nil
}

// Disable снимает оба перехвата
func (i *Interceptor) Disable() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled {
		return nil
	}
	var errs []error
	for _, ep := range host.EntryPoints {
		if err := i.registry.Disable(i.owner, ep); err != nil {
			errs = append(errs, err)
		}
	}
	i.enabled = false
	return errors.Join(errs...)
}

// Enabled сообщает, активен ли перехват
func (i *Interceptor) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}
