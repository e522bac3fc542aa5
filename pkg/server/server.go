// Package server implements the server identity and registry (spec.md C1):
// parsing server specs, resolving names, and distinguishing local from
// remote targets. Grounded on original_source/updatectl/src/types.rs, the
// fuller of the two Server variants in the corpus (it adds the "name:local"
// special case and UPDATE_LOCAL_DISPLAY support missing from
// original_source/updatemon/src/types.rs).
package server

import (
	"fmt"
	"os"
	"strings"
)

// Server is a named operation target: the local host, or a remote host
// reached over SSH as "user@host". Immutable once constructed.
type Server struct {
	Name    string
	SSHHost string // empty iff local
}

// Local returns the local server, named from UPDATE_LOCAL_NAME (default
// "localhost").
func Local() Server {
	name := os.Getenv("UPDATE_LOCAL_NAME")
	if name == "" {
		name = "localhost"
	}
	return Server{Name: name}
}

// IsLocal reports whether the server has no SSH endpoint.
func (s Server) IsLocal() bool {
	return s.SSHHost == ""
}

// DisplayHost returns the host text used in reports: UPDATE_LOCAL_DISPLAY
// (default "local") for the local server, or the SSH host otherwise.
func (s Server) DisplayHost() string {
	if s.IsLocal() {
		display := os.Getenv("UPDATE_LOCAL_DISPLAY")
		if display == "" {
			display = "local"
		}
		return display
	}
	return s.SSHHost
}

// Parse parses one server spec per spec.md §3:
//
//	"name:user@host"        -> (name, user@host)
//	"user@host"              -> (host-part, user@host)
//	"name:local" / "name:localhost" (case-insensitive) -> local server named name
//	"local" / "localhost"    -> local
//
// Leading/trailing whitespace is trimmed; ':' is the name/host separator
// and at most one is allowed.
func Parse(spec string) (Server, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return Server{}, fmt.Errorf("server: empty spec")
	}

	if strings.EqualFold(s, "local") || strings.EqualFold(s, "localhost") {
		return Local(), nil
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 1 {
		// "user@host" form: name is the host part (after '@' if present,
		// else the whole string).
		host := strings.TrimSpace(parts[0])
		if host == "" {
			return Server{}, fmt.Errorf("server: empty host in spec %q", spec)
		}
		name := host
		if i := strings.Index(host, "@"); i >= 0 {
			name = host[i+1:]
		}
		return Server{Name: name, SSHHost: host}, nil
	}

	name := strings.TrimSpace(parts[0])
	rest := strings.TrimSpace(parts[1])
	if name == "" {
		return Server{}, fmt.Errorf("server: empty name in spec %q", spec)
	}
	if strings.ContainsRune(rest, ':') {
		return Server{}, fmt.Errorf("server: more than one ':' separator in spec %q", spec)
	}
	if strings.EqualFold(rest, "local") || strings.EqualFold(rest, "localhost") {
		l := Local()
		l.Name = name
		return l, nil
	}
	if rest == "" {
		return Server{}, fmt.Errorf("server: empty host in spec %q", spec)
	}
	return Server{Name: name, SSHHost: rest}, nil
}

// ParseAll parses a comma-separated list of server specs, skipping blank
// entries.
func ParseAll(csv string) ([]Server, error) {
	var servers []Server
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := Parse(part)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, nil
}
