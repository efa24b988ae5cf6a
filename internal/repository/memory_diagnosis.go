package repository

import (
	"context"
	"sort"
	"sync"

	"go-spine-inspector/pkg/models"
)

// MemoryDiagnosisRepository keeps diagnoses in process memory
type MemoryDiagnosisRepository struct {
	mu     sync.RWMutex
	byID   map[string]models.Diagnosis
	byUser map[string][]string
}

// NewMemoryDiagnosisRepository creates an empty in-memory repository
func NewMemoryDiagnosisRepository() *MemoryDiagnosisRepository {
	return &MemoryDiagnosisRepository{
		byID:   make(map[string]models.Diagnosis),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryDiagnosisRepository) Save(ctx context.Context, d models.Diagnosis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDiagnosis(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		r.byUser[d.UserID] = append(r.byUser[d.UserID], d.ID)
	}
	r.byID[d.ID] = d
	return nil
}

func (r *MemoryDiagnosisRepository) Get(ctx context.Context, id string) (*models.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, ErrDiagnosisNotFound
	}
	return &d, nil
}

// ListByUser returns newest first; records with equal timestamps keep reverse insertion order
func (r *MemoryDiagnosisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	ids := r.byUser[userID]
	out := make([]models.Diagnosis, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.byID[ids[i]])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryDiagnosisRepository) Close() error {
	return nil
}
