package worker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fluxaudio/fluxaudio/internal/job"
)

// Registry maps a capability to the endpoint of the worker that serves
// it. The mapping is built once at startup from config; an unknown
// capability is a caller error the orchestrator turns into a job failure.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[job.Capability]string
}

func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[job.Capability]string)}
}

func (r *Registry) Register(capability job.Capability, endpoint string) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[capability] = endpoint
}

func (r *Registry) Endpoint(capability job.Capability) (string, error) {
	r.mu.RLock()
	ep, ok := r.endpoints[capability]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no worker found for capability: %s", capability)
	}
	return ep, nil
}

// Capabilities returns the registered capability set, for startup logging.
func (r *Registry) Capabilities() []job.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]job.Capability, 0, len(r.endpoints))
	for c := range r.endpoints {
		out = append(out, c)
	}
	return out
}
