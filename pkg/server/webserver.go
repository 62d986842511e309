package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/storage"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const name = "github.com/matst80/slask-facets/pkg/server"

var (
	tracer = otel.Tracer(name)

	facetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfacets_facet_requests_total",
		Help: "The total number of facet requests",
	}, []string{"column"})
	snapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_snapshot_errors_total",
		Help: "The total number of facet snapshots that could not be stored",
	})
)

type WebServer struct {
	Table *index.Table
	// Snapshots is optional.
	Snapshots  FacetSnapshotStore
	FacetLimit int
}

func NewWebServer(table *index.Table, snapshots FacetSnapshotStore) *WebServer {
	return &WebServer{
		Table:      table,
		Snapshots:  snapshots,
		FacetLimit: 100,
	}
}

// BuildFacet reads the faceted unique values and min/max of column from one
// table snapshot. ok is false for unknown columns.
func (ws *WebServer) BuildFacet(ctx context.Context, column types.ColumnId, limit int) (*JsonFacet, bool) {
	_, span := tracer.Start(ctx, "BuildFacet")
	defer span.End()
	span.SetAttributes(attribute.String("column", string(column)))

	facets, ok := ws.Table.Facets(column)
	if !ok {
		return nil, false
	}
	values := facets.UniqueValues.Values()
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	result := &JsonFacet{
		Column: column,
		Epoch:  facets.Epoch,
		Rows:   facets.RowModel.Len(),
		Total:  facets.UniqueValues.Total(),
		Values: make([]FacetValue, len(values)),
	}
	for i, v := range values {
		result.Values[i] = FacetValue{Value: jsonScalar(v.Value), Count: v.Count}
	}
	if facets.HasRange {
		result.Range = newJsonRange(facets.Range)
	}
	if facets.Filter != nil {
		result.Selected = describeFilter(facets.Filter)
	}
	span.SetAttributes(attribute.Int64("epoch", int64(facets.Epoch)), attribute.Int("values", len(result.Values)))
	return result, true
}

func describeFilter(p types.Predicate) any {
	switch p.(type) {
	case types.StringFilter, types.RangeFilter, types.ContainsFilter:
		return p
	}
	return true
}

func (ws *WebServer) saveSnapshot(ctx context.Context, facet *JsonFacet) {
	if ws.Snapshots == nil {
		return
	}
	if err := ws.Snapshots.Save(ctx, facet); err != nil {
		snapshotErrors.Inc()
		log.Printf("unable to store facet snapshot for %s: %v", facet.Column, err)
	}
}

func (ws *WebServer) requireColumn(r *http.Request) (types.ColumnId, error) {
	column := types.ColumnId(r.PathValue("column"))
	if !ws.Table.HasColumn(column) {
		return column, common.NotFound(fmt.Errorf("column %q not found", column))
	}
	return column, nil
}

func (ws *WebServer) GetColumns(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	columns := ws.Table.Columns()
	result := ColumnsResponse{
		Columns: make([]ColumnInfo, len(columns)),
		Rows:    ws.Table.RowCount(),
		Epoch:   ws.Table.Epoch(),
	}
	for i, id := range columns {
		info := ColumnInfo{Id: id}
		if p, ok := ws.Table.ColumnFilter(id); ok {
			info.Filtered = true
			info.Filter = describeFilter(p)
		}
		result.Columns[i] = info
	}
	return enc.Encode(result)
}

func (ws *WebServer) GetFacets(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	ctx, span := tracer.Start(r.Context(), "GetFacets")
	defer span.End()
	req, err := FacetRequestFromQuery(r.URL.Query(), ws.FacetLimit)
	if err != nil {
		return common.BadRequest(err)
	}
	columns := ws.Table.Columns()
	result := make([]*JsonFacet, 0, len(columns))
	for _, column := range columns {
		facet, ok := ws.BuildFacet(ctx, column, req.Limit)
		if !ok {
			continue
		}
		facetRequests.WithLabelValues(string(column)).Inc()
		ws.saveSnapshot(ctx, facet)
		result = append(result, facet)
	}
	return enc.Encode(result)
}

func (ws *WebServer) GetFacet(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	ctx, span := tracer.Start(r.Context(), "GetFacet")
	defer span.End()
	column, err := ws.requireColumn(r)
	if err != nil {
		return err
	}
	req, err := FacetRequestFromQuery(r.URL.Query(), ws.FacetLimit)
	if err != nil {
		return common.BadRequest(err)
	}
	facet, ok := ws.BuildFacet(ctx, column, req.Limit)
	if !ok {
		return common.NotFound(fmt.Errorf("column %q not found", column))
	}
	facetRequests.WithLabelValues(string(column)).Inc()
	ws.saveSnapshot(ctx, facet)
	return enc.Encode(facet)
}

// GetSnapshot serves the last facet stored for column, it may be older than
// the current table state.
func (ws *WebServer) GetSnapshot(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	ctx, span := tracer.Start(r.Context(), "GetSnapshot")
	defer span.End()
	column := types.ColumnId(r.PathValue("column"))
	if ws.Snapshots == nil {
		return common.NotFound(errors.New("no snapshot store configured"))
	}
	facet, err := ws.Snapshots.Load(ctx, column)
	if errors.Is(err, ErrNoSnapshot) || (err == nil && facet == nil) {
		return common.NotFound(fmt.Errorf("no snapshot for column %q", column))
	}
	if err != nil {
		return err
	}
	return enc.Encode(facet)
}

func (ws *WebServer) SetFilter(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	column, err := ws.requireColumn(r)
	if err != nil {
		return err
	}
	req, err := decodeQuery[FilterRequest](r.URL.Query())
	if err != nil {
		return common.BadRequest(err)
	}
	predicate, err := req.Predicate()
	if err != nil {
		return common.BadRequest(err)
	}
	ws.Table.SetColumnFilter(column, predicate)
	return ws.GetColumns(w, r, enc)
}

func (ws *WebServer) ClearFilter(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	column, err := ws.requireColumn(r)
	if err != nil {
		return err
	}
	ws.Table.ClearColumnFilter(column)
	return ws.GetColumns(w, r, enc)
}

func (ws *WebServer) ResetFilters(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	ws.Table.ResetColumnFilters()
	return ws.GetColumns(w, r, enc)
}

// SetGlobalFilter matches the value against every column; an empty value
// clears the global filter.
func (ws *WebServer) SetGlobalFilter(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	req, err := decodeQuery[GlobalFilterRequest](r.URL.Query())
	if err != nil {
		return common.BadRequest(err)
	}
	if req.Value == "" {
		ws.Table.SetGlobalFilter(nil)
	} else {
		ws.Table.SetGlobalFilter(types.ContainsFilter{Value: req.Value})
	}
	return enc.Encode(RowsResponse{Rows: ws.Table.FilteredRowModel().Len(), Epoch: ws.Table.Epoch()})
}

// UpsertRows registers the columns used by the posted rows.
func (ws *WebServer) UpsertRows(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	var stored []storage.JsonRow
	if err := jsoncompat.NewDecoder(r.Body).Decode(&stored); err != nil {
		return common.BadRequest(err)
	}
	rows, err := storage.ToRows(stored)
	if err != nil {
		return common.BadRequest(err)
	}
	for _, column := range storage.ColumnsOf(rows) {
		ws.Table.AddColumn(column)
	}
	ws.Table.UpsertRows(rows...)
	return enc.Encode(RowsResponse{Rows: ws.Table.RowCount(), Epoch: ws.Table.Epoch()})
}

func (ws *WebServer) DeleteRow(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return common.BadRequest(err)
	}
	if ws.Table.DeleteRows(uint(id)) == 0 {
		return common.NotFound(errors.New("row not found"))
	}
	return enc.Encode(RowsResponse{Rows: ws.Table.RowCount(), Epoch: ws.Table.Epoch()})
}

func (ws *WebServer) Handle(enableProfiling bool) *http.ServeMux {
	srv := http.NewServeMux()

	srv.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv.Handle("/metrics", promhttp.Handler())

	srv.HandleFunc("GET /api/columns", common.JsonHandler(ws.GetColumns))
	srv.HandleFunc("GET /api/facets", common.JsonHandler(ws.GetFacets))
	srv.HandleFunc("GET /api/facets/{column}", common.JsonHandler(ws.GetFacet))
	srv.HandleFunc("GET /api/snapshots/{column}", common.JsonHandler(ws.GetSnapshot))
	srv.HandleFunc("PUT /api/filters/{column}", common.JsonHandler(ws.SetFilter))
	srv.HandleFunc("DELETE /api/filters/{column}", common.JsonHandler(ws.ClearFilter))
	srv.HandleFunc("DELETE /api/filters", common.JsonHandler(ws.ResetFilters))
	srv.HandleFunc("PUT /api/global-filter", common.JsonHandler(ws.SetGlobalFilter))
	srv.HandleFunc("POST /api/rows", common.JsonHandler(ws.UpsertRows))
	srv.HandleFunc("DELETE /api/rows/{id}", common.JsonHandler(ws.DeleteRow))
	srv.HandleFunc("OPTIONS /api/", common.RespondToOptions)

	if enableProfiling {
		srv.HandleFunc("/debug/pprof/", pprof.Index)
		srv.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		srv.HandleFunc("/debug/pprof/profile", pprof.Profile)
		srv.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		srv.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return srv
}
