package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

type readiness struct {
	mu         sync.RWMutex
	components map[string]*component
	log        *zap.Logger
	kubernetes bool

	readyCh   chan struct{}
	readyOnce sync.Once

	trafficCh      chan struct{}
	trafficOnce    sync.Once
	trafficReadyAt time.Time
}

func newReadiness(log *zap.Logger, runningInKubernetes bool) *readiness {
	return &readiness{
		components: make(map[string]*component),
		log:        log,
		kubernetes: runningInKubernetes,
		readyCh:    make(chan struct{}),
		trafficCh:  make(chan struct{}),
	}
}

func (r *readiness) AddComponent(name string) func() {
	if name == "" {
		panic("readiness: component name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		r.log.Warn("component already registered", zap.String("component", name))
	} else {
		r.components[name] = &component{name: name, startedAt: time.Now()}
	}

	return func() { r.MarkReady(name) }
}

func (r *readiness) MarkReady(name string) {
	if name == "" {
		panic("readiness: component name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.components[name]
	if !exists {
		panic(fmt.Sprintf("readiness: component '%s' does not exist, must call AddComponent first", name))
	}
	if comp.ready {
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()
	r.log.Info("component ready", zap.String("component", name))

	for _, c := range r.components {
		if !c.ready {
			return
		}
	}

	r.readyOnce.Do(func() {
		close(r.readyCh)
		r.log.Info("all components are ready", zap.Int("component_count", len(r.components)))
	})
	if !r.kubernetes {
		r.markTrafficReadyLocked()
	}
}

func (r *readiness) IsReady() bool {
	select {
	case <-r.readyCh:
		return true
	default:
		return false
	}
}

func (r *readiness) GetStatus() ReadinessStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := ReadinessStatus{
		Ready:          r.IsReady(),
		Components:     make([]ComponentStatus, 0, len(r.components)),
		TrafficReadyAt: r.trafficReadyAt,
	}

	for _, comp := range r.components {
		status.Components = append(status.Components, ComponentStatus{
			Name:      comp.name,
			Ready:     comp.ready,
			StartedAt: comp.startedAt,
			ReadyAt:   comp.readyAt,
		})
		if status.Ready && comp.readyAt.After(status.ReadyAt) {
			status.ReadyAt = comp.readyAt
		}
	}
	sort.Slice(status.Components, func(i, j int) bool {
		return status.Components[i].Name < status.Components[j].Name
	})

	return status
}

// MarkTrafficReady is called by the readiness probe once it reports healthy.
// It has no effect until all components are ready.
func (r *readiness) MarkTrafficReady() {
	if !r.IsReady() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markTrafficReadyLocked()
}

func (r *readiness) markTrafficReadyLocked() {
	r.trafficOnce.Do(func() {
		r.trafficReadyAt = time.Now()
		close(r.trafficCh)
		r.log.Info("ready for traffic")
	})
}

func (r *readiness) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *readiness) WaitForTrafficReady(ctx context.Context) error {
	select {
	case <-r.trafficCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
