package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popmap/internal/boundary"
	"github.com/sells-group/popmap/internal/config"
	"github.com/sells-group/popmap/internal/dataset"
	"github.com/sells-group/popmap/internal/metrics"
	"github.com/sells-group/popmap/internal/population"
	"github.com/sells-group/popmap/internal/render"
)

func square(lon, lat, size float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{lon, lat}, {lon + size, lat}, {lon + size, lat + size}, {lon, lat + size}, {lon, lat},
	}}})
}

func testDataset() *dataset.Dataset {
	table := population.NewTable([]population.Row{
		{Country: "Brazil", Value: 216422446},
		{Country: "Chile", Value: 19629590},
		{Country: "Peru", Value: 34352719},
		{Country: "Uruguay", Value: 3423108},
		{Country: "Bolivia", Value: math.NaN()},
	})
	countries := boundary.NewCollection([]boundary.Country{
		{Name: "Brazil", Geometry: square(-60, -20, 10), AreaKm2: 1190000},
		{Name: "Chile", Geometry: square(-72, -40, 4)},
		{Name: "Peru", Geometry: square(-78, -14, 6)},
		{Name: "Uruguay", Geometry: square(-58, -34, 2)},
		{Name: "Bolivia", Geometry: square(-66, -20, 4)},
	})
	return dataset.New(table, countries, config.RenderConfig{
		Width:   400,
		Height:  400,
		Padding: 20,
		Colors:  config.DefaultColors,
	})
}

type testServer struct {
	handler http.Handler
	cache   *render.Cache
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cache := render.NewCache(16, time.Minute)
	m := metrics.New()
	srv := New(testDataset(), Options{CORSOrigins: []string{"*"}, Cache: cache, Metrics: m})
	return &testServer{handler: srv.Router(), cache: cache, metrics: m}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, rec))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCountries(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/api/countries")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]map[string]any](t, rec)
	require.Len(t, rows, 5)

	assert.Equal(t, "Brazil", rows[0]["country"])
	assert.InDelta(t, 216422446, rows[0]["value"], 0.001)
	assert.Equal(t, true, rows[0]["available"])
	assert.InDelta(t, 3, rows[0]["bucket"], 0.001)
	assert.Equal(t, "216.42M", rows[0]["formatted"])
	assert.InDelta(t, 1190000, rows[0]["area_km2"], 0.001)
	assert.Contains(t, rows[0], "density")

	assert.Equal(t, "Bolivia", rows[4]["country"])
	assert.Nil(t, rows[4]["value"])
	assert.Nil(t, rows[4]["bucket"])
	assert.Equal(t, false, rows[4]["available"])
	assert.Equal(t, "n/a", rows[4]["formatted"])
}

func TestBuckets(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/api/buckets")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Buckets []bucketResponse `json:"buckets"`
		Span    spanResponse     `json:"span"`
	}](t, rec)
	require.Len(t, body.Buckets, 4)

	assert.Equal(t, bucketResponse{
		Index:   0,
		Color:   "#DAD2F0",
		Min:     3423108,
		Max:     3423108,
		Label:   "3.42M – 3.42M",
		Size:    1,
		Members: []string{"Uruguay"},
	}, body.Buckets[0])
	assert.Equal(t, []string{"Brazil"}, body.Buckets[3].Members)
	assert.Equal(t, "#3D2A73", body.Buckets[3].Color)
	// Bolivia has no data and stays out of the span.
	assert.Equal(t, spanResponse{Min: 3423108, Max: 216422446}, body.Span)
}

func TestSelect(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{}},
		{"?pick=Chile", []string{"Chile"}},
		{"?sel=Chile&pick=Chile", []string{"Chile"}},
		{"?sel=Chile&pick=Peru", []string{"Chile", "Peru"}},
		{"?sel=Chile&sel=Peru&pick=Brazil", []string{"Peru", "Brazil"}},
		{"?pick=A&pick=B&pick=C", []string{"B", "C"}},
		{"?sel=A&sel=A&sel=&sel=B&sel=C", []string{"B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := ts.get(t, "/api/select"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[map[string][]string](t, rec)
			assert.Equal(t, tt.want, body["selection"])
		})
	}
	assert.InDelta(t, 7, testutil.ToFloat64(ts.metrics.Selections), 0.001)
}

func TestMapSVG(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/map.svg?hover=Chile&active=3&label=Brazil")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<svg"))
	assert.Contains(t, body, `stroke="#EEE7E0"`)
	assert.Contains(t, body, `fill="#e5e5e5"`)
	assert.Contains(t, body, `class="population-label"`)
	assert.Contains(t, body, ">216.42M</text>")
	assert.NotContains(t, body, "<a ")

	again := ts.get(t, "/map.svg?hover=Chile&active=3&label=Brazil")
	assert.Equal(t, "hit", again.Header().Get("X-Cache"))
	assert.Equal(t, body, again.Body.String())

	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.Renders.WithLabelValues(metrics.KindMap)), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.CacheHits), 0.001)
}

func TestMapSVG_HoverFoldedName(t *testing.T) {
	ts := newTestServer(t)

	want := ts.get(t, "/map.svg?hover=Chile").Body.String()
	rec := ts.get(t, "/map.svg?hover=chile")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, want, rec.Body.String())
	assert.Contains(t, want, `stroke="#EEE7E0" stroke-width="2" data-country="Chile"`)
}

func TestMapSVG_Zoom(t *testing.T) {
	ts := newTestServer(t)

	full := ts.get(t, "/map.svg").Body.String()
	zoomed := ts.get(t, "/map.svg?zoom=uruguay")
	require.Equal(t, http.StatusOK, zoomed.Code)
	assert.Equal(t, "miss", zoomed.Header().Get("X-Cache"))
	assert.NotEqual(t, full, zoomed.Body.String())

	// A click zooms the same way as an explicit zoom.
	picked := ts.get(t, "/map.svg?pick=Uruguay")
	labelled := ts.get(t, "/map.svg?zoom=uruguay&label=Uruguay")
	assert.Equal(t, labelled.Body.String(), picked.Body.String())
	assert.Contains(t, picked.Body.String(), ">3.42M</text>")

	// Unknown countries show the whole map.
	assert.Equal(t, full, ts.get(t, "/map.svg?zoom=Atlantis").Body.String())
}

func TestMapSVG_BadActive(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"active=4", "active=-1", "active=x"} {
		rec := ts.get(t, "/map.svg?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		body := decode[map[string]string](t, rec)
		assert.Contains(t, body["error"], "active must be", q)
	}
}

func TestCardSVG(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/card.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Select a country")

	rec = ts.get(t, "/card.svg?sel=Brazil&sel=Chile")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "216,422,446")
	assert.Contains(t, body, "19,629,590")
	assert.Contains(t, body, `width="150.00"`)

	// The hover does not change the card, so it is served from cache.
	again := ts.get(t, "/card.svg?sel=Brazil&sel=Chile&hover=Peru")
	assert.Equal(t, "hit", again.Header().Get("X-Cache"))
}

func TestPage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/?sel=Chile&pick=Peru&active=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "<h2>Population</h2>")
	assert.Contains(t, body, "34,352,719")
	assert.Contains(t, body, "Population Quartiles")
	// Country links carry the new selection, the zoom and the filter.
	assert.Contains(t, body, `href="/?active=2&amp;pick=Brazil&amp;sel=Chile&amp;sel=Peru&amp;zoom=Peru"`)
	// The active legend entry clears the filter; others switch to themselves.
	assert.Contains(t, body, `href="/?sel=Chile&amp;sel=Peru&amp;zoom=Peru"`)
	assert.Contains(t, body, `href="/?active=0&amp;sel=Chile&amp;sel=Peru&amp;zoom=Peru"`)
	// Clicked country gets the population label.
	assert.Contains(t, body, ">34.35M</text>")
}

func TestPage_BadQuery(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/?active=9")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheStats(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/map.svg")
	ts.get(t, "/map.svg")

	rec := ts.get(t, "/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[render.CacheStats](t, rec)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCacheDisabled(t *testing.T) {
	srv := New(testDataset(), Options{})
	h := srv.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map.svg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/card.svg")

	rec := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `popmap_renders_total{kind="card"} 1`)
}

func TestParseState(t *testing.T) {
	st, err := parseState(map[string][]string{
		"sel":    {"A", "B"},
		"pick":   {" C ", ""},
		"hover":  {" D"},
		"zoom":   {"E "},
		"active": {"1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "E", st.zoom)
	assert.Equal(t, []string{"A", "B"}, st.selected)
	assert.Equal(t, []string{"C"}, st.picks)
	assert.Equal(t, "D", st.hover)
	require.NotNil(t, st.active)
	assert.Equal(t, 1, int(*st.active))
}
