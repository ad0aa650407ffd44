// internal/permits/datasource.go
package permits

import (
	"context"
	"sort"
	"sync"

	"permit-portal/internal/common/errors"
	"permit-portal/internal/models"
)

// DataSource is the read capability the status views depend on. The live
// implementation is the platform client; a seeded in-memory source backs
// demo environments and tests. Callers never branch on which one they hold.
type DataSource interface {
	FetchApplication(ctx context.Context, id string) (*models.Application, error)
	FetchApplications(ctx context.Context, userID string) ([]*models.Application, error)
}

// LiveDataSource reads from the permit platform.
type LiveDataSource struct {
	client *Client
}

func NewLiveDataSource(client *Client) *LiveDataSource {
	return &LiveDataSource{client: client}
}

func (s *LiveDataSource) FetchApplication(ctx context.Context, id string) (*models.Application, error) {
	return s.client.GetApplication(ctx, id)
}

func (s *LiveDataSource) FetchApplications(ctx context.Context, userID string) ([]*models.Application, error) {
	return s.client.ListApplications(ctx, userID)
}

// MemoryDataSource serves a fixed set of applications from memory.
type MemoryDataSource struct {
	mu   sync.RWMutex
	apps map[string]*models.Application
}

func NewMemoryDataSource(apps ...*models.Application) *MemoryDataSource {
	s := &MemoryDataSource{apps: make(map[string]*models.Application)}
	for _, app := range apps {
		s.apps[app.ID] = app
	}
	return s
}

// Put inserts or replaces an application.
func (s *MemoryDataSource) Put(app *models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = app
}

func (s *MemoryDataSource) FetchApplication(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, errors.NewNotFoundError("application " + id)
	}
	copied := *app
	return &copied, nil
}

func (s *MemoryDataSource) FetchApplications(_ context.Context, userID string) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		if userID != "" && app.UserID != userID {
			continue
		}
		copied := *app
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
