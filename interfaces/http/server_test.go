package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"applicationaccess/domain/accessmanager"
	"applicationaccess/domain/events"
)

type fakeWriter struct {
	written []events.Event
	err     error
}

func (f *fakeWriter) Write(ctx context.Context, e events.Event) error {
	if f.err != nil {
		return f.err
	}
	e.Header.EventID = "stub-event-id"
	f.written = append(f.written, e)
	return nil
}

type fakeQueryManager struct {
	hasAccess bool
	components []accessmanager.ApplicationComponentAccess
}

func (f *fakeQueryManager) HasAccessToApplicationComponent(user, component, accessLevel string, includeIndirect bool) bool {
	return f.hasAccess
}

func (f *fakeQueryManager) HasAccessToEntity(user, entityType, entity string, includeIndirect bool) bool {
	return false
}

func (f *fakeQueryManager) GetApplicationComponentsAccessibleByUser(user string, includeIndirect bool) []accessmanager.ApplicationComponentAccess {
	return f.components
}

func (f *fakeQueryManager) GetGroupsForUser(user string, includeIndirect bool) []string {
	return nil
}

func TestServer_AddUser_WritesAddUserEvent(t *testing.T) {
	w := &fakeWriter{}
	s := NewServer(w, &fakeQueryManager{}, zap.NewNop())
	handler := s.Setup()

	req := httptest.NewRequest(http.MethodPost, "/v1/users/", strings.NewReader(`{"user":"alice"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, w.written, 1)
	assert.Equal(t, events.KindAddUser, w.written[0].Header.Kind)
	assert.Equal(t, "alice", w.written[0].User)
}

func TestServer_CheckAccess_ReturnsQueryManagerResult(t *testing.T) {
	s := NewServer(&fakeWriter{}, &fakeQueryManager{hasAccess: true}, zap.NewNop())
	handler := s.Setup()

	req := httptest.NewRequest(http.MethodGet, "/v1/access-checks?user=alice&component=reporting", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hasAccess":true`)
}

func TestServer_CheckAccess_MissingParamsReturnsInvalidArgument(t *testing.T) {
	s := NewServer(&fakeWriter{}, &fakeQueryManager{}, zap.NewNop())
	handler := s.Setup()

	req := httptest.NewRequest(http.MethodGet, "/v1/access-checks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Health_ReturnsOK(t *testing.T) {
	s := NewServer(&fakeWriter{}, &fakeQueryManager{}, zap.NewNop())
	handler := s.Setup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
