package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySnapshots struct {
	mu     sync.Mutex
	facets map[types.ColumnId]*JsonFacet
}

func (m *memorySnapshots) Save(ctx context.Context, facet *JsonFacet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facets[facet.Column] = facet
	return nil
}

func (m *memorySnapshots) Load(ctx context.Context, column types.ColumnId) (*JsonFacet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	facet, ok := m.facets[column]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return facet, nil
}

func testServer(t *testing.T) (*WebServer, *memorySnapshots, http.Handler) {
	t.Helper()
	table := index.NewTable(index.TableOptions{})
	table.AddColumn("status")
	table.AddColumn("owner")
	table.AddColumn("price")
	table.SetRows([]types.Row{
		types.RowFromMap(1, map[string]any{"status": "open", "owner": "anna", "price": 10.0}),
		types.RowFromMap(2, map[string]any{"status": "closed", "owner": "bo", "price": 20.0}),
		types.RowFromMap(3, map[string]any{"status": "open", "owner": "bo", "price": 5.0}),
		types.RowFromMap(4, map[string]any{"status": "open", "owner": "anna"}),
	})
	snapshots := &memorySnapshots{facets: map[types.ColumnId]*JsonFacet{}}
	ws := NewWebServer(table, snapshots)
	return ws, snapshots, ws.Handle(false)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func countsOf(f JsonFacet) map[string]int {
	ret := map[string]int{}
	for _, v := range f.Values {
		ret[v.Value.(string)] = v.Count
	}
	return ret
}

func TestGetFacetIgnoresOwnFilter(t *testing.T) {
	_, snapshots, h := testServer(t)

	rec := do(t, h, http.MethodPut, "/api/filters/owner?value=anna", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/facets/owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	owner := decode[JsonFacet](t, rec)
	assert.Equal(t, map[string]int{"anna": 2, "bo": 2}, countsOf(owner))
	assert.Equal(t, 4, owner.Rows)

	rec = do(t, h, http.MethodGet, "/api/facets/status", "")
	status := decode[JsonFacet](t, rec)
	assert.Equal(t, map[string]int{"open": 2}, countsOf(status))
	assert.Equal(t, 2, status.Rows)

	assert.Contains(t, snapshots.facets, types.ColumnId("owner"))
	assert.Contains(t, snapshots.facets, types.ColumnId("status"))
}

func TestGetFacetRangeAndLimit(t *testing.T) {
	_, _, h := testServer(t)
	rec := do(t, h, http.MethodGet, "/api/facets/price?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	price := decode[JsonFacet](t, rec)
	assert.Len(t, price.Values, 1)
	assert.Equal(t, 3, price.Total)
	require.NotNil(t, price.Range)
	assert.Equal(t, 5.0, price.Range.Min)
	assert.Equal(t, 20.0, price.Range.Max)
}

func TestRangeFilter(t *testing.T) {
	_, _, h := testServer(t)
	rec := do(t, h, http.MethodPut, "/api/filters/price?min=6", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	owner := decode[JsonFacet](t, do(t, h, http.MethodGet, "/api/facets/owner", ""))
	assert.Equal(t, map[string]int{"anna": 1, "bo": 1}, countsOf(owner))

	rec = do(t, h, http.MethodDelete, "/api/filters/price", "")
	require.Equal(t, http.StatusOK, rec.Code)
	owner = decode[JsonFacet](t, do(t, h, http.MethodGet, "/api/facets/owner", ""))
	assert.Equal(t, map[string]int{"anna": 2, "bo": 2}, countsOf(owner))
}

func TestBadRequests(t *testing.T) {
	_, _, h := testServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/facets/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/filters/owner", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/filters/price?min=5&max=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/filters/price?min=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/rows/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/rows/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/rows", "{").Code)
}

func TestRowIdsMustFitTheBitmaps(t *testing.T) {
	ws, _, h := testServer(t)
	rec := do(t, h, http.MethodPost, "/api/rows", `[{"id":4294967297,"values":{"status":"new"}}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, ws.Table.RowCount())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/rows/4294967297", "").Code)
	assert.Equal(t, 4, ws.Table.RowCount())
}

func TestGetSnapshot(t *testing.T) {
	ws, _, h := testServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/snapshots/owner", "").Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/facets/owner", "").Code)
	epoch := ws.Table.Epoch()
	do(t, h, http.MethodDelete, "/api/rows/1", "")

	rec := do(t, h, http.MethodGet, "/api/snapshots/owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[JsonFacet](t, rec)
	assert.Equal(t, epoch, snapshot.Epoch)
	assert.Equal(t, map[string]int{"anna": 2, "bo": 2}, countsOf(snapshot))

	ws.Snapshots = nil
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/snapshots/owner", "").Code)
}

func TestBuildFacetUsesOneEpoch(t *testing.T) {
	ws, _, _ := testServer(t)
	ws.Table.SetColumnFilter("status", types.StringFilter{Values: []string{"open"}})
	facet, ok := ws.BuildFacet(context.Background(), "status", 10)
	require.True(t, ok)
	assert.Equal(t, ws.Table.Epoch(), facet.Epoch)
	assert.Equal(t, types.StringFilter{Values: []string{"open"}}, facet.Selected)
	assert.Equal(t, facet.Rows, facet.Total)

	_, ok = ws.BuildFacet(context.Background(), "missing", 10)
	assert.False(t, ok)
}

func TestRowMutations(t *testing.T) {
	ws, _, h := testServer(t)
	rec := do(t, h, http.MethodPost, "/api/rows", `[{"id":5,"values":{"status":"new","team":"x"}}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decode[RowsResponse](t, rec).Rows)
	assert.True(t, ws.Table.HasColumn("team"))

	status := decode[JsonFacet](t, do(t, h, http.MethodGet, "/api/facets/status", ""))
	assert.Equal(t, 1, countsOf(status)["new"])

	rec = do(t, h, http.MethodDelete, "/api/rows/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[JsonFacet](t, do(t, h, http.MethodGet, "/api/facets/status", ""))
	assert.NotContains(t, countsOf(status), "new")
}

func TestGlobalFilterAndColumns(t *testing.T) {
	_, _, h := testServer(t)
	rec := do(t, h, http.MethodPut, "/api/global-filter?value=ANN", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[RowsResponse](t, rec).Rows)

	owner := decode[JsonFacet](t, do(t, h, http.MethodGet, "/api/facets/owner", ""))
	assert.Equal(t, map[string]int{"anna": 2}, countsOf(owner))

	do(t, h, http.MethodPut, "/api/global-filter", "")
	do(t, h, http.MethodPut, "/api/filters/status?value=open", "")
	columns := decode[ColumnsResponse](t, do(t, h, http.MethodGet, "/api/columns", ""))
	require.Len(t, columns.Columns, 3)
	assert.Equal(t, types.ColumnId("status"), columns.Columns[0].Id)
	assert.True(t, columns.Columns[0].Filtered)
	assert.False(t, columns.Columns[1].Filtered)

	columns = decode[ColumnsResponse](t, do(t, h, http.MethodDelete, "/api/filters", ""))
	assert.False(t, columns.Columns[0].Filtered)
}

func TestGetAllFacets(t *testing.T) {
	_, snapshots, h := testServer(t)
	rec := do(t, h, http.MethodGet, "/api/facets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	facets := decode[[]JsonFacet](t, rec)
	assert.Len(t, facets, 3)
	assert.Len(t, snapshots.facets, 3)
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "facets:owner", SnapshotKey("owner"))
}
