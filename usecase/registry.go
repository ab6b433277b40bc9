package usecase

import (
	"sort"

	"social-hub/domain/dto"
	"social-hub/domain/repository"
)

// PlatformRegistry holds the registered platform clients keyed by name.
// Registration happens once at startup; lookups after that are read-only,
// so no locking is needed.
type PlatformRegistry struct {
	clients map[string]repository.IPlatformClient
}

func NewPlatformRegistry(clients ...repository.IPlatformClient) *PlatformRegistry {
	r := &PlatformRegistry{clients: make(map[string]repository.IPlatformClient, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

func (r *PlatformRegistry) Register(c repository.IPlatformClient) {
	r.clients[c.Name()] = c
}

func (r *PlatformRegistry) Get(platform string) (repository.IPlatformClient, bool) {
	c, ok := r.clients[platform]
	return c, ok
}

func (r *PlatformRegistry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities describes each registered platform for the discovery
// endpoint.
func (r *PlatformRegistry) Capabilities() []dto.PlatformCapability {
	caps := make([]dto.PlatformCapability, 0, len(r.clients))
	for _, name := range r.Names() {
		spec := r.clients[name].Spec()
		caps = append(caps, dto.PlatformCapability{
			Platform:       name,
			MinMediaItems:  spec.MinMediaItems,
			SupportsRevoke: spec.SupportsRevoke,
		})
	}
	return caps
}
