// Package http exposes the Writer Node's mutation surface and a replica
// Access Manager's query surface over REST (§4.I), built on chi the way the
// teacher's interfaces/http/rest package is: a thin Router type holding the
// application's bus/service handles, Setup building the middleware chain
// and route tree once at startup. Grounded on the teacher's
// interfaces/http/rest/router.go, adapted from the teacher's command/query
// bus dispatch to direct calls against the Writer Node and Access Manager,
// since this module has no CQRS bus layer.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"applicationaccess/domain/accessmanager"
	"applicationaccess/domain/events"
	"applicationaccess/internal/middleware"
	"applicationaccess/internal/shard"
	"applicationaccess/pkg/accesserrors"
)

// Writer is the subset of writer.Node the REST surface mutates through.
type Writer interface {
	Write(ctx context.Context, e events.Event) error
}

// QueryManager is the subset of accessmanager.AccessManager the REST surface
// reads from, typically a Reader Node's replica.
type QueryManager interface {
	HasAccessToApplicationComponent(user, component, accessLevel string, includeIndirect bool) bool
	HasAccessToEntity(user, entityType, entity string, includeIndirect bool) bool
	GetApplicationComponentsAccessibleByUser(user string, includeIndirect bool) []accessmanager.ApplicationComponentAccess
	GetGroupsForUser(user string, includeIndirect bool) []string
}

// Server wires the Writer Node, a replica QueryManager, and (in sharded
// deployments) the shard Router into one chi-routed HTTP API.
type Server struct {
	writer Writer
	query  QueryManager
	router *shard.Router
	logger *zap.Logger

	cbConfig middleware.CircuitBreakerConfig
	timeout  time.Duration
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithShardRouter wires a shard.Router so HasAccessToApplicationComponent
// can fall through to the cross-shard query path when the local replica
// isn't authoritative for the whole graph.
func WithShardRouter(r *shard.Router) Option { return func(s *Server) { s.router = r } }

// WithTimeout overrides the request timeout, default 10s.
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// NewServer constructs a Server.
func NewServer(writer Writer, query QueryManager, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		writer:   writer,
		query:    query,
		logger:   logger,
		cbConfig: middleware.DefaultCircuitBreakerConfig("applicationaccess-rest"),
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup builds the route tree and middleware chain.
func (s *Server) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Timeout(s.timeout))
	r.Use(middleware.CircuitBreaker(s.cbConfig, s.logger))

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.addUser)
			r.Delete("/{user}", s.removeUser)
		})
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.addGroup)
			r.Delete("/{group}", s.removeGroup)
		})
		r.Post("/user-group-mappings", s.addUserToGroupMapping)
		r.Post("/component-access-mappings", s.addUserToComponentMapping)

		r.Get("/access-checks", s.checkAccess)
		r.Get("/users/{user}/components", s.listComponentsForUser)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userRequest struct {
	User string `json:"user"`
}

func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	s.write(w, r, events.AddUser(req.User))
}

func (s *Server) removeUser(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, events.RemoveUser(chi.URLParam(r, "user")))
}

type groupRequest struct {
	Group string `json:"group"`
}

func (s *Server) addGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decode(w, r, &req) {
		return
	}
	s.write(w, r, events.AddGroup(req.Group))
}

func (s *Server) removeGroup(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, events.RemoveGroup(chi.URLParam(r, "group")))
}

type userGroupMappingRequest struct {
	User  string `json:"user"`
	Group string `json:"group"`
}

func (s *Server) addUserToGroupMapping(w http.ResponseWriter, r *http.Request) {
	var req userGroupMappingRequest
	if !decode(w, r, &req) {
		return
	}
	s.write(w, r, events.AddUserToGroupMapping(req.User, req.Group))
}

type componentMappingRequest struct {
	User        string `json:"user"`
	Component   string `json:"component"`
	AccessLevel string `json:"accessLevel"`
}

func (s *Server) addUserToComponentMapping(w http.ResponseWriter, r *http.Request) {
	var req componentMappingRequest
	if !decode(w, r, &req) {
		return
	}
	s.write(w, r, events.AddUserToApplicationComponentAndAccessLevelMapping(req.User, req.Component, req.AccessLevel))
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, e events.Event) {
	if err := s.writer.Write(r.Context(), e); err != nil {
		writeAccessError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"eventId": e.Header.EventID})
}

func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user, component, accessLevel := q.Get("user"), q.Get("component"), q.Get("accessLevel")
	includeIndirect := q.Get("includeIndirect") == "true"

	if user == "" || component == "" {
		writeAccessError(w, accesserrors.InvalidArgument("user", "user and component are required"))
		return
	}

	ok := s.query.HasAccessToApplicationComponent(user, component, accessLevel, includeIndirect)
	if !ok && s.router != nil {
		routed, err := s.router.HasAccessToApplicationComponent(r.Context(), user, component, accessLevel, includeIndirect)
		if err != nil {
			writeAccessError(w, err)
			return
		}
		ok = routed
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasAccess": ok})
}

func (s *Server) listComponentsForUser(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	includeIndirect := r.URL.Query().Get("includeIndirect") == "true"
	writeJSON(w, http.StatusOK, s.query.GetApplicationComponentsAccessibleByUser(user, includeIndirect))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAccessError(w, accesserrors.InvalidArgument("body", "malformed request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAccessError(w http.ResponseWriter, err error) {
	var ae *accesserrors.AccessError
	if !errors.As(err, &ae) {
		ae = accesserrors.Internal(err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{"code": ae.Code, "message": ae.Message, "attributes": ae.Attributes})
}
