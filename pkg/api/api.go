// Package api serves the aggregator state over HTTP.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slim-bean/airdash/pkg/aggregator"
	"github.com/slim-bean/airdash/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Aggregator is the part of the aggregator the API reads and drives.
type Aggregator interface {
	Entities() []model.Entity
	Entity(t model.EntityType, id string) (model.Entity, bool)
	DataSources() []model.SourceInfo
	AddDataSource(uri string) (aggregator.DataSource, error)
	RemoveDataSource(uri string) error
}

type API struct {
	logger log.Logger
	agg    Aggregator
}

func New(logger log.Logger, agg Aggregator) *API {
	return &API{
		logger: log.With(logger, "component", "api"),
		agg:    agg,
	}
}

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/entities", a.listEntities).Methods(http.MethodGet)
	r.HandleFunc("/api/entities/{type}/{id}", a.getEntity).Methods(http.MethodGet)
	r.HandleFunc("/api/sources", a.listSources).Methods(http.MethodGet)
	r.HandleFunc("/api/sources", a.addSource).Methods(http.MethodPost)
	r.HandleFunc("/api/sources", a.removeSource).Methods(http.MethodDelete)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return r
}

type sourceRequest struct {
	URI string `json:"uri"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) listEntities(w http.ResponseWriter, r *http.Request) {
	entities := a.agg.Entities()
	if t := r.URL.Query().Get("type"); t != "" {
		filtered := make([]model.Entity, 0, len(entities))
		for _, e := range entities {
			if strings.EqualFold(string(e.Type), t) {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}
	a.writeJSON(w, http.StatusOK, entities)
}

func (a *API) getEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t := model.EntityType(strings.ToUpper(vars["type"]))
	if !t.Valid() {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown entity type"})
		return
	}
	e, ok := a.agg.Entity(t, vars["id"])
	if !ok {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: "entity not found"})
		return
	}
	a.writeJSON(w, http.StatusOK, e)
}

func (a *API) listSources(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.agg.DataSources())
}

func (a *API) addSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	src, err := a.agg.AddDataSource(req.URI)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, model.SourceInfo{
		ID:     src.String(),
		Type:   src.Type(),
		Label:  src.String(),
		Status: src.Status(),
	})
}

func (a *API) removeSource(w http.ResponseWriter, r *http.Request) {
	if err := a.agg.RemoveDataSource(r.URL.Query().Get("uri")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, aggregator.ErrBadURI):
		status = http.StatusBadRequest
	case errors.Is(err, aggregator.ErrAlreadyConnected):
		status = http.StatusConflict
	case errors.Is(err, aggregator.ErrNotFound):
		status = http.StatusNotFound
	default:
		level.Error(a.logger).Log("msg", "request failed", "err", err)
	}
	a.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Warn(a.logger).Log("msg", "failed to write response", "err", err)
	}
}
