package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/bar-occupancy/config"
	"github.com/oksasatya/bar-occupancy/internal/container"
	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/memory"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/seed"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/session"
	handlers "github.com/oksasatya/bar-occupancy/internal/interface/http"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func fastHash(p string) (string, error) { return helpers.HashPasswordCost(p, bcrypt.MinCost) }

type testApp struct {
	t      *testing.T
	store  *memory.Store
	engine *gin.Engine
}

func newTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	store := memory.NewStore()
	_, err := seed.Apply(context.Background(), store, fastHash)
	require.NoError(t, err)

	cfg := &config.Config{
		SessionSecret:       "router-test-secret",
		SessionTTL:          time.Hour,
		EnforceBarOwnership: true,
		ESBarsIndex:         "bars",
		DebugMetricsEnabled: true,
	}
	for _, m := range mutate {
		m(cfg)
	}
	c := container.New(cfg, helpers.NewDiscardLogger(), container.Infra{
		Store:    store,
		Sessions: session.NewMemoryStore(),
	})
	c.Auth.PasswordCost = bcrypt.MinCost
	return &testApp{t: t, store: store, engine: NewEngine(c)}
}

func (a *testApp) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(username, password string) *http.Cookie {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/login", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(a.t, w)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.SessionCookie && ck.Value != "" {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", helpers.SessionCookie)
	return nil
}

func (a *testApp) bars() []entity.Bar {
	a.t.Helper()
	w := a.do(http.MethodGet, "/api/bars", "")
	require.Equal(a.t, http.StatusOK, w.Code)
	var out []entity.Bar
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (a *testApp) bar(id int64) entity.Bar {
	a.t.Helper()
	for _, b := range a.bars() {
		if b.ID == id {
			return b
		}
	}
	a.t.Fatalf("bar %d not listed", id)
	return entity.Bar{}
}

func TestListBarsIsPublicAndOrdered(t *testing.T) {
	app := newTestApp(t)
	bars := app.bars()
	require.Len(t, bars, 4)
	for i, b := range bars {
		assert.Equal(t, int64(i+1), b.ID)
		assert.Equal(t, seed.Bars[i].Name, b.Name)
		assert.GreaterOrEqual(t, b.CurrentCount, 0)
		assert.Greater(t, b.Capacity, 0)
	}
	assert.Equal(t, bars, app.bars())
}

func TestListBarsJSONShape(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/api/bars", "")
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.NotEmpty(t, raw)
	for _, key := range []string{"id", "name", "currentCount", "capacity", "address", "latitude", "longitude"} {
		assert.Contains(t, raw[0], key)
	}
	assert.IsType(t, "", raw[0]["latitude"])
}

func TestManagerUpdatesOwnBar(t *testing.T) {
	app := newTestApp(t)
	before := app.bars()
	ck := app.login("whiskey_manager", "whiskeypass123")

	w := app.do(http.MethodPatch, "/api/bars/2/count", `{"count":75}`, ck)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated entity.Bar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, int64(2), updated.ID)
	assert.Equal(t, 75, updated.CurrentCount)

	after := app.bars()
	require.Len(t, after, 4)
	for i := range after {
		if after[i].ID == 2 {
			assert.Equal(t, 75, after[i].CurrentCount)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
}

func TestUpdateCountIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	ck := app.login("brats_manager", "bratspass123")
	for i := 0; i < 2; i++ {
		w := app.do(http.MethodPatch, "/api/bars/1/count", `{"count":42}`, ck)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 42, app.bar(1).CurrentCount)
}

func TestUpdateCountRequiresSession(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPatch, "/api/bars/1/count", `{"count":10}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPatch, "/api/bars/1/count", `{"count":10}`, &http.Cookie{Name: helpers.SessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 0, app.bar(1).CurrentCount)
}

func TestUpdateCountRejectsInvalidPayload(t *testing.T) {
	app := newTestApp(t)
	ck := app.login("brats_manager", "bratspass123")

	cases := map[string]string{
		"negative":    `{"count":-1}`,
		"missing":     `{}`,
		"string":      `{"count":"ten"}`,
		"fractional":  `{"count":2.5}`,
		"not json":    `count=3`,
		"empty":       ``,
		"null count":  `{"count":null}`,
		"truncated":   `{"count":`,
		"array body":  `[1]`,
		"bool count":  `{"count":true}`,
		"nested obj":  `{"count":{"n":1}}`,
		"huge number": `{"count":1e40}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := app.do(http.MethodPatch, "/api/bars/1/count", body, ck)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var env map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, false, env["success"])
			assert.NotEmpty(t, env["error"])
		})
	}
	assert.Equal(t, 0, app.bar(1).CurrentCount)
}

func TestNegativeCountNamesField(t *testing.T) {
	app := newTestApp(t)
	ck := app.login("brats_manager", "bratspass123")
	w := app.do(http.MethodPatch, "/api/bars/1/count", `{"count":-1}`, ck)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var env struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Contains(t, env.Error, "count")
}

func TestUnknownBar(t *testing.T) {
	app := newTestApp(t)
	ck := app.login("brats_manager", "bratspass123")

	w := app.do(http.MethodPatch, "/api/bars/999/count", `{"count":5}`, ck)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.BarNotFoundText, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	w = app.do(http.MethodGet, "/api/bars/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.BarNotFoundText, w.Body.String())
}

func TestNonIntegerBarID(t *testing.T) {
	app := newTestApp(t)
	ck := app.login("brats_manager", "bratspass123")
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/bars/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPatch, "/api/bars/abc/count", `{"count":1}`, ck).Code)
}

func TestGetBar(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/api/bars/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var b entity.Bar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "The KK", b.Name)
}

func TestForeignBarIsForbidden(t *testing.T) {
	app := newTestApp(t)
	ck := app.login("kk_manager", "kkpass123")

	w := app.do(http.MethodPatch, "/api/bars/1/count", `{"count":9}`, ck)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, app.bar(1).CurrentCount)
}

func TestOwnershipCanBeDisabled(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.EnforceBarOwnership = false })
	ck := app.login("kk_manager", "kkpass123")

	w := app.do(http.MethodPatch, "/api/bars/1/count", `{"count":9}`, ck)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 9, app.bar(1).CurrentCount)
}

func TestRoundTripOnCreatedBar(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	b, err := app.store.CreateBar(ctx, entity.NewBar{Name: "Round Trip Tavern", CurrentCount: 0, Capacity: 100, Address: "1 Test Way", Latitude: "0", Longitude: "0"})
	require.NoError(t, err)
	hash, err := fastHash("tavernpass123")
	require.NoError(t, err)
	_, err = app.store.CreateUser(ctx, entity.NewUser{Username: "tavern_manager", Password: hash, BarID: &b.ID})
	require.NoError(t, err)

	ck := app.login("tavern_manager", "tavernpass123")
	w := app.do(http.MethodPatch, "/api/bars/"+jsonInt(b.ID)+"/count", `{"count":80}`, ck)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 80, app.bar(b.ID).CurrentCount)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestLoginLogoutLifecycle(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/login", `{"username":"chasers_manager","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(http.MethodPost, "/api/login", `{"username":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ck := app.login("chasers_manager", "chaserspass123")

	w = app.do(http.MethodGet, "/api/user", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "chasers_manager", env.Data["username"])
	assert.Equal(t, float64(4), env.Data["barId"])
	assert.NotContains(t, env.Data, "password")

	w = app.do(http.MethodPost, "/api/logout", "", ck)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/user", "", ck).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodPatch, "/api/bars/4/count", `{"count":1}`, ck).Code)
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/register", `{"username":"door_person","password":"longenough1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ck := sessionCookie(t, w)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/user", "", ck).Code)

	// a registered bouncer manages no bar
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPatch, "/api/bars/1/count", `{"count":3}`, ck).Code)

	w = app.do(http.MethodPost, "/api/register", `{"username":"door_person","password":"longenough1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodPost, "/api/register", `{"username":"x","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchFallsBackToStore(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/api/bars/search?q=state+st", "")
	require.Equal(t, http.StatusOK, w.Code)
	var bars []entity.Bar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bars))
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1), bars[0].ID)
	assert.Equal(t, int64(2), bars[1].ID)

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/bars/search?q=x&size=-3", "").Code)
}

func TestDebugVars(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/api/debug/vars", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bar_count_updates"`)
	assert.Contains(t, w.Body.String(), `"logins"`)

	off := newTestApp(t, func(c *config.Config) { c.DebugMetricsEnabled = false })
	assert.Equal(t, http.StatusNotFound, off.do(http.MethodGet, "/api/debug/vars", "").Code)
}

func TestResponsesCarryRequestID(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/api/bars", "")
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.StoreBackend = "memory" })
	w := app.do(http.MethodGet, "/api/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Store string `json:"store"`
			Bars  int    `json:"bars"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "memory", body.Data.Store)
	assert.Equal(t, 4, body.Data.Bars)
}
