package repository

import (
	"strings"
)

// Registry looks up image record repositories by model name
type Registry struct {
	byModel map[string]ImageRecordRepository
	order   []ImageRecordRepository
}

// NewRegistry creates a registry keeping repos in the given order
func NewRegistry(repos ...ImageRecordRepository) *Registry {
	r := &Registry{byModel: make(map[string]ImageRecordRepository, len(repos))}
	for _, repo := range repos {
		r.byModel[strings.ToLower(repo.Model())] = repo
		r.order = append(r.order, repo)
	}
	return r
}

// Get returns the repository of model
func (r *Registry) Get(model string) (ImageRecordRepository, bool) {
	repo, ok := r.byModel[strings.ToLower(strings.TrimSpace(model))]
	return repo, ok
}

// All returns every repository in registration order
func (r *Registry) All() []ImageRecordRepository {
	return r.order
}

// Names returns the model names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, repo := range r.order {
		names = append(names, repo.Model())
	}
	return names
}
