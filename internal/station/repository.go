package station

import "context"

// Repository is a source of station records.
type Repository interface {
	// List returns every station in a stable order.
	List(ctx context.Context) ([]Station, error)

	// Name identifies the source in logs.
	Name() string
}

// MemoryRepository serves a fixed in-memory list.
type MemoryRepository struct {
	stations []Station
}

// NewMemoryRepository creates a repository over stations.
func NewMemoryRepository(stations []Station) *MemoryRepository {
	return &MemoryRepository{stations: stations}
}

// List implements Repository.
func (r *MemoryRepository) List(_ context.Context) ([]Station, error) {
	out := make([]Station, len(r.stations))
	copy(out, r.stations)
	return out, nil
}

// Name implements Repository.
func (r *MemoryRepository) Name() string {
	return "memory"
}
