package server

import "fmt"

// Registry is the process-local mapping from server name to Server. Built
// once per process from UPDATE_SERVERS plus, optionally, the local server.
// Duplicate names are flagged rather than silently overwritten.
type Registry struct {
	byName map[string]Server
	order  []string
}

// NewRegistry builds a Registry from a list of servers, in order. Returns an
// error if two servers share a name.
func NewRegistry(servers []Server) (*Registry, error) {
	r := &Registry{byName: make(map[string]Server, len(servers))}
	for _, s := range servers {
		if _, exists := r.byName[s.Name]; exists {
			return nil, fmt.Errorf("server: duplicate server name %q", s.Name)
		}
		r.byName[s.Name] = s
		r.order = append(r.order, s.Name)
	}
	return r, nil
}

// Get resolves a server by name.
func (r *Registry) Get(name string) (Server, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// All returns the registered servers in registration order.
func (r *Registry) All() []Server {
	out := make([]Server, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len reports the number of registered servers.
func (r *Registry) Len() int {
	return len(r.order)
}
