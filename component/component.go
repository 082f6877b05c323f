package component

import (
	"context"
	"fmt"
	"strings"
)

// HealthStatus is the state a component reports.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is something an application starts and stops with itself.
type Component interface {
	// Name is unique within a Registry.
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what a component says about itself in the startup log.
type Description struct {
	// Name defaults to the component's Name.
	Name    string
	Type    string
	Details string
}

// Describable is implemented by components that describe their setup.
type Describable interface {
	Describe() Description
}

// Overall folds reports into one status: any unhealthy report makes it
// unhealthy, otherwise any degraded report makes it degraded.
func Overall(reports []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range reports {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Check returns an error naming every report that is not healthy.
func Check(reports []Health) error {
	var bad []string
	for _, h := range reports {
		if h.Status == StatusHealthy {
			continue
		}
		s := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			s += " (" + h.Message + ")"
		}
		bad = append(bad, s)
	}
	if len(bad) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(bad, ", "))
	}
	return nil
}
