// Package webhook implements the authenticated HTTP control plane (spec.md
// §4.6 / SPEC_FULL.md C8). Structurally modeled on
// cuemby-warren/pkg/api/server.go's immutable Server-struct-plus-constructor
// shape, but over plain HTTP/query-param auth instead of gRPC+mTLS, routed
// with github.com/gorilla/mux.
package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fleetops/updatectl/pkg/cleanup"
	"github.com/fleetops/updatectl/pkg/dockerapi"
	"github.com/fleetops/updatectl/pkg/executor"
	"github.com/fleetops/updatectl/pkg/imageupdate"
	"github.com/fleetops/updatectl/pkg/log"
	"github.com/fleetops/updatectl/pkg/metrics"
	"github.com/fleetops/updatectl/pkg/notify"
	"github.com/fleetops/updatectl/pkg/osupdate"
	"github.com/fleetops/updatectl/pkg/pkgmanager"
	"github.com/fleetops/updatectl/pkg/server"
)

// State is the process-wide, read-only state shared by every handler
// (spec.md §3's WebhookState): built once at server start, never mutated.
type State struct {
	Client        *http.Client
	Secret        string
	Registry      *server.Registry
	SSHKeyPath    string
	WebhookURL    string
	Gotify        notify.GotifyConfig
	Ntfy          notify.NtfyConfig
	RestartPolicy imageupdate.RestartPolicy
	LogSizeBytes  uint64
	ImageAgeDays  int
}

// Server is the webhook HTTP surface.
type Server struct {
	state  *State
	router *mux.Router
}

// NewServer builds the route table over the given state (spec.md §4.6's
// route table, plus /health, /ready, and the additive /metrics route).
func NewServer(state *State) *Server {
	s := &Server{state: state, router: mux.NewRouter()}
	s.routes()

	if state.Registry.Len() > 0 {
		metrics.RegisterComponent("registry", true, "")
	} else {
		metrics.RegisterComponent("registry", false, "no servers configured")
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/webhook/update/os", s.handleUpdateOS).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/update/docker/all", s.handleUpdateDockerAll).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/update/docker/image", s.handleUpdateDockerImage).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/cleanup/safe", s.handleCleanupSafe).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/cleanup/images/prune-unused", s.handleCleanupPruneUnused).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/ready", metrics.ReadyHandler()).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// constantTimeCompare ports
// original_source/common/src/security.rs::constant_time_compare: equal
// length is checked first, and a mismatched length still runs a dummy
// same-length comparison so a length difference does not leak through
// timing (spec.md §4.6).
func constantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		dummy := make([]byte, len(a))
		subtle.ConstantTimeCompare([]byte(a), dummy)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// authenticate implements spec.md §4.6's auth rule and returns a request id
// for correlating the outcome in logs either way.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (requestID string, ok bool) {
	requestID = uuid.New().String()
	token := r.URL.Query().Get("token")

	if !constantTimeCompare(token, s.state.Secret) {
		log.WithRequestID(requestID).Warn().
			Str("route", r.URL.Path).
			Msg("webhook authentication failed: invalid token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		metrics.WebhookRequestsTotal.WithLabelValues(r.URL.Path, "unauthorized").Inc()
		return requestID, false
	}
	return requestID, true
}

// dispatch implements spec.md §4.6's async pattern: authenticate
// synchronously, acknowledge with 202 immediately, then run op in the
// background and fan the result out to both notification backends. One
// shared helper replaces what would otherwise be five near-identical
// handler bodies.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, notifyTitle string, op func(ctx context.Context) (string, error)) {
	start := time.Now()
	requestID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("accepted"))
	metrics.WebhookRequestsTotal.WithLabelValues(r.URL.Path, "accepted").Inc()
	metrics.WebhookRequestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())

	go func() {
		ctx := context.Background()
		logger := log.WithRequestID(requestID)

		body, err := op(ctx)
		title := notifyTitle
		if err != nil {
			title = notifyTitle + " failed"
			body = err.Error()
			logger.Error().Err(err).Msg("webhook operation failed")
		} else {
			logger.Info().Msg("webhook operation completed")
		}

		notify.Dispatch(ctx, s.state.Client, s.state.Gotify, s.state.Ntfy, title, body, nil)
	}()
}

func (s *Server) resolveServer(name string) (server.Server, error) {
	srv, ok := s.state.Registry.Get(name)
	if !ok {
		return server.Server{}, fmt.Errorf("unknown server %q", name)
	}
	return srv, nil
}

func (s *Server) handleUpdateOS(w http.ResponseWriter, r *http.Request) {
	serverName := r.URL.Query().Get("server")
	s.dispatch(w, r, fmt.Sprintf("%s - OS update", serverName), func(ctx context.Context) (string, error) {
		srv, err := s.resolveServer(serverName)
		if err != nil {
			return "", err
		}
		exec := executor.New(srv, s.state.SSHKeyPath)
		body, err := osupdate.Update(ctx, exec, false)
		if err == nil && updateApplied(body) {
			if checker, derr := pkgmanager.Detect(ctx, exec); derr == nil {
				metrics.OSUpdatesApplied.WithLabelValues(serverName, checker.DisplayName()).Inc()
			}
		}
		return body, err
	})
}

// updateApplied reports whether an OS update summary indicates packages
// were actually upgraded, as opposed to "no updates"/"already up to date".
func updateApplied(body string) bool {
	return !strings.HasPrefix(body, "No updates") && !strings.HasPrefix(body, "Already up to date")
}

func (s *Server) handleUpdateDockerAll(w http.ResponseWriter, r *http.Request) {
	serverName := r.URL.Query().Get("server")
	s.dispatch(w, r, fmt.Sprintf("%s - Docker update", serverName), func(ctx context.Context) (string, error) {
		srv, err := s.resolveServer(serverName)
		if err != nil {
			return "", err
		}
		exec := executor.New(srv, s.state.SSHKeyPath)

		targets, err := imageupdate.ListImages(ctx, exec)
		if err != nil {
			return "", err
		}
		outcomes := imageupdate.UpdateImages(ctx, exec, serverName, targets, s.state.RestartPolicy)
		recordDockerPulls(serverName, outcomes)
		return imageupdate.Summary(outcomes), nil
	})
}

func (s *Server) handleUpdateDockerImage(w http.ResponseWriter, r *http.Request) {
	serverName := r.URL.Query().Get("server")
	image := r.URL.Query().Get("image")
	s.dispatch(w, r, fmt.Sprintf("%s - Update %s", serverName, image), func(ctx context.Context) (string, error) {
		srv, err := s.resolveServer(serverName)
		if err != nil {
			return "", err
		}
		exec := executor.New(srv, s.state.SSHKeyPath)
		outcomes := imageupdate.UpdateImages(ctx, exec, serverName, []string{image}, s.state.RestartPolicy)
		recordDockerPulls(serverName, outcomes)
		return imageupdate.Summary(outcomes), nil
	})
}

// recordDockerPulls increments the pull-outcome counter per image (spec.md
// §4.5's pull step), labeled "success"/"failure".
func recordDockerPulls(serverName string, outcomes []imageupdate.Outcome) {
	for _, o := range outcomes {
		outcome := "failure"
		if o.Pulled {
			outcome = "success"
		}
		metrics.DockerImagesPulled.WithLabelValues(serverName, outcome).Inc()
	}
}

func (s *Server) handleCleanupSafe(w http.ResponseWriter, r *http.Request) {
	serverName := r.URL.Query().Get("server")
	s.dispatch(w, r, fmt.Sprintf("%s - Safe cleanup", serverName), func(ctx context.Context) (string, error) {
		srv, err := s.resolveServer(serverName)
		if err != nil {
			return "", err
		}
		th := cleanup.ForProfile(cleanup.Conservative).WithLogSizeBytes(s.state.LogSizeBytes)

		var result cleanup.ExecResult
		if srv.IsLocal() {
			api, err := dockerapi.NewClient()
			if err != nil {
				return "", err
			}
			defer api.Close()
			result = cleanup.SafeCleanupLocal(ctx, api, th)
		} else {
			exec := executor.New(srv, s.state.SSHKeyPath)
			result = cleanup.SafeCleanupRemote(ctx, exec, th)
		}

		metrics.CleanupBytesReclaimed.WithLabelValues(serverName, "safe").Add(float64(result.BytesReclaimed))
		return summarizeExecResult("safe cleanup", result), nil
	})
}

func (s *Server) handleCleanupPruneUnused(w http.ResponseWriter, r *http.Request) {
	serverName := r.URL.Query().Get("server")
	s.dispatch(w, r, fmt.Sprintf("%s - Prune unused images", serverName), func(ctx context.Context) (string, error) {
		srv, err := s.resolveServer(serverName)
		if err != nil {
			return "", err
		}
		th := cleanup.Thresholds{UnusedImageAgeDays: s.state.ImageAgeDays, PruneUnusedImages: true}

		var result cleanup.ExecResult
		if srv.IsLocal() {
			api, err := dockerapi.NewClient()
			if err != nil {
				return "", err
			}
			defer api.Close()
			result = cleanup.UnusedImageCleanupLocal(ctx, api, th)
		} else {
			exec := executor.New(srv, s.state.SSHKeyPath)
			result = cleanup.UnusedImageCleanupRemote(ctx, exec, th)
		}

		metrics.CleanupBytesReclaimed.WithLabelValues(serverName, "unused_images").Add(float64(result.BytesReclaimed))
		return summarizeExecResult("prune unused images", result), nil
	})
}

func summarizeExecResult(label string, result cleanup.ExecResult) string {
	if len(result.Errors) == 0 {
		return fmt.Sprintf("%s: reclaimed %d bytes", label, result.BytesReclaimed)
	}
	return fmt.Sprintf("%s: reclaimed %d bytes, %d errors", label, result.BytesReclaimed, len(result.Errors))
}
