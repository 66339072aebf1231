package session

import (
	"sync"

	"github.com/vitaltrace-ai/platform/pkg/fhir"
)

// Registry owns the retrieval clients, one per thread identifier, lazily
// created on first use. Access is serialized; concurrent queries sharing a
// thread id get the same client.
type Registry struct {
	mu      sync.Mutex
	clients map[string]fhir.Searcher
	factory func() fhir.Searcher
}

func NewRegistry(factory func() fhir.Searcher) *Registry {
	return &Registry{
		clients: make(map[string]fhir.Searcher),
		factory: factory,
	}
}

func (r *Registry) Get(threadID string) fhir.Searcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[threadID]; ok {
		return client
	}
	client := r.factory()
	r.clients[threadID] = client
	return client
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
