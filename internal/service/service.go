package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Service is a long running background part of the server. Session
// registries implement it to run their idle sweep loops.
type Service interface {
	// Run blocks until ctx is canceled or the service fails.
	Run(ctx context.Context) error
}

// Manager starts registered services together and waits for them on
// shutdown. Register everything before calling Run, the Manager is not
// safe for registration after start.
type Manager struct {
	services []Service
	group    *errgroup.Group
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds services to be started by Run.
func (m *Manager) Register(services ...Service) {
	m.services = append(m.services, services...)
}

// Run starts every registered service in its own goroutine. The first
// service error cancels the rest through the group context.
func (m *Manager) Run(ctx context.Context) {
	if len(m.services) == 0 {
		return
	}
	group, ctx := errgroup.WithContext(ctx)
	for _, s := range m.services {
		s := s
		group.Go(func() error {
			return s.Run(ctx)
		})
	}
	m.group = group
}

// Wait blocks until all running services returned, reporting the first
// error observed.
func (m *Manager) Wait() error {
	if m.group == nil {
		return nil
	}
	return m.group.Wait()
}
