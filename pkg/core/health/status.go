// Package health tracks whether the components a newsletter process depends
// on (mongo, the Kafka producer, telemetry exporters) have started.
package health

import (
	"context"
	"time"
)

type ComponentStatus struct {
	Name      string    `json:"name"`
	Ready     bool      `json:"ready"`
	StartedAt time.Time `json:"started_at"`
	ReadyAt   time.Time `json:"ready_at,omitzero"`
}

// ReadinessStatus is what /health/ready?format=json returns.
type ReadinessStatus struct {
	Ready          bool              `json:"ready"`
	Components     []ComponentStatus `json:"components"`
	ReadyAt        time.Time         `json:"ready_at,omitzero"`
	TrafficReadyAt time.Time         `json:"traffic_ready_at,omitzero"`
}

// ComponentManager is used by modules that start asynchronously.
type ComponentManager interface {
	// AddComponent registers name as not ready; call the result once it is.
	AddComponent(name string) func()
}

type ReadinessChecker interface {
	IsReady() bool
	GetStatus() ReadinessStatus
}

// ReadinessWaiter blocks until a readiness milestone or ctx is done.
type ReadinessWaiter interface {
	WaitReady(ctx context.Context) error
	WaitForTrafficReady(ctx context.Context) error
}

// TrafficController is driven by the readiness probe.
type TrafficController interface {
	MarkTrafficReady()
}
