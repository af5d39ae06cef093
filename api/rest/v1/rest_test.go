package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	eventctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/event"
	piecectrl "github.com/conveyor-cloud/conveyor/api/rest/controller/piece"
	platformctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/platform"
	triggerctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/trigger"
	piecesvc "github.com/conveyor-cloud/conveyor/api/rest/service/piece"
	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
	triggersvc "github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/conveyor-cloud/conveyor/internal/event"
	"github.com/conveyor-cloud/conveyor/internal/flow"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/internal/poll"
	"github.com/conveyor-cloud/conveyor/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

const testAdminToken = "test-admin-token"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	db := testutil.OpenTestDB(t)
	t.Cleanup(func() { testutil.CloseDB(db) })

	bus := event.New()
	registry := piece.NewRegistry()
	coordinator := poll.New(
		poll.NewStore(db),
		registry,
		flow.NewLogEmitter(bus),
		bus,
		poll.Options{},
	)

	platforms := platformsvc.New(db, bus)

	e := echo.New()
	Bind(e.Group("/v1"), Controllers{
		Platform:   platformctrl.New(platforms),
		Piece:      piecectrl.New(piecesvc.New(registry, platforms)),
		Trigger:    triggerctrl.New(triggersvc.New(db, registry, coordinator)),
		Event:      eventctrl.New(bus),
		AdminToken: testAdminToken,
	})

	return e
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFilterConfigRoutesRequireAdmin(t *testing.T) {
	e := newTestServer(t)

	// Reading the filter config exposes the platform's policy, so it
	// sits behind the same admin check as the mutations.
	for _, tt := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/platforms/p-1/filtered-pieces"},
		{http.MethodPatch, "/v1/platforms/p-1/filtered-pieces"},
		{http.MethodPatch, "/v1/platforms/p-1/pieces/slack/visibility"},
	} {
		rec := do(e, tt.method, tt.path, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s without token", tt.method, tt.path)

		rec = do(e, tt.method, tt.path, "wrong-token")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s with bad token", tt.method, tt.path)
	}
}

func TestFilterConfigGetWithAdminToken(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/v1/platforms/p-1/filtered-pieces", testAdminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVisiblePieceListingIsUnauthenticated(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/v1/platforms/p-1/pieces", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
