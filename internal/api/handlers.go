// Package api exposes the card store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gmllt/taskboard/internal/board"
)

const maxBodyBytes = 1 << 20

// Prober reports whether the backing storage accepts writes.
type Prober interface {
	CheckAvailability(ctx context.Context) bool
}

type Handler struct {
	store   *board.Store
	probe   Prober
	log     logrus.FieldLogger
	metrics *Metrics
}

func NewHandler(store *board.Store, probe Prober, log logrus.FieldLogger, metrics *Metrics) *Handler {
	return &Handler{store: store, probe: probe, log: log, metrics: metrics}
}

// Router builds the API routes. When staticDir is set, other paths are
// served from it. gatherer backs /metrics and may be nil.
func (h *Handler) Router(staticDir string, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/columns", h.listColumns).Methods(http.MethodGet)
	api.HandleFunc("/cards", h.listCards).Methods(http.MethodGet)
	api.HandleFunc("/cards", h.createCard).Methods(http.MethodPost)
	api.HandleFunc("/cards/{id}", h.getCard).Methods(http.MethodGet)
	api.HandleFunc("/cards/{id}", h.updateCard).Methods(http.MethodPut)
	api.HandleFunc("/cards/{id}", h.deleteCard).Methods(http.MethodDelete)
	api.HandleFunc("/cards/{id}/move", h.moveCard).Methods(http.MethodPost)
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
	return r
}

func (h *Handler) listColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, board.Columns())
}

func (h *Handler) listCards(w http.ResponseWriter, r *http.Request) {
	var cards []board.Card
	if column := r.URL.Query().Get("column"); column != "" {
		cards = h.store.ListByColumn(column)
	} else {
		cards = h.store.List()
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *Handler) getCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) createCard(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Content  string `json:"content"`
		ColumnID string `json:"columnId"`
	}
	if !h.decode(w, r, &input) {
		return
	}
	card, err := h.store.Create(r.Context(), input.Content, input.ColumnID)
	h.record("create", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *Handler) updateCard(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Content string `json:"content"`
	}
	if !h.decode(w, r, &input) {
		return
	}
	card, err := h.store.Update(r.Context(), mux.Vars(r)["id"], input.Content)
	h.record("update", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.store.Delete(r.Context(), mux.Vars(r)["id"])
	h.record("delete", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) moveCard(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ColumnID string `json:"columnId"`
	}
	if !h.decode(w, r, &input) {
		return
	}
	card, err := h.store.Move(r.Context(), mux.Vars(r)["id"], input.ColumnID)
	h.record("move", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil || !h.probe.CheckAvailability(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) record(op string, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.observe(op, err)
	if err == nil {
		h.metrics.setCards(len(h.store.List()))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		msg := "invalid JSON body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		} else if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		h.log.WithError(err).Debug("decode request")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind, ok := board.KindOf(err)
	if !ok {
		h.log.WithError(err).Error("unexpected store error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	var status int
	switch {
	case kind.IsValidation():
		status = http.StatusBadRequest
	case kind == board.KindNotFound:
		status = http.StatusNotFound
	case kind == board.KindPersistence:
		status = http.StatusInsufficientStorage
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
