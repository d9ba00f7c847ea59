package jobcards

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/shared"
)

// SweepEnqueuer schedules a background reconciliation of every job card.
type SweepEnqueuer interface {
	EnqueueReconcileAll(ctx context.Context) error
}

// Handler exposes the job card JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	sweeper SweepEnqueuer
}

// NewHandler constructs the handler. sweeper may be nil, in which case the
// sweep endpoint runs the reconciliation inline.
func NewHandler(logger *slog.Logger, service *Service, sweeper SweepEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sweeper: sweeper}
}

// MountRoutes attaches job card routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/reconcile", h.reconcileAll)
	r.Get("/number/{displayID}", h.showByNumber)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Post("/reconcile", h.reconcile)
		r.Post("/{group}", h.addItem)
		r.Patch("/{group}/{itemID}", h.updateItem)
		r.Delete("/{group}/{itemID}", h.deleteItem)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	httpx.RespondError(w, err)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	card, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create job card", err)
		return
	}
	httpx.Data(w, http.StatusCreated, card)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		RegNo:  strings.TrimSpace(q.Get("regno")),
		Search: strings.TrimSpace(q.Get("q")),
	}
	verr := &httpx.ValidationError{}
	if s := q.Get("status"); s != "" {
		status := Status(strings.ToLower(s))
		if status != StatusPending && status != StatusCompleted {
			verr.Add("status", "must be one of [pending completed]")
		}
		filter.Status = &status
	}
	period, err := shared.ParsePeriod(q.Get("from"), q.Get("to"), h.service.loc)
	if err != nil {
		verr.Add("from", err.Error())
	}
	filter.DateFrom, filter.DateTo = period.From, period.To
	filter.Limit = parseQueryInt(q.Get("limit"), "limit", verr)
	filter.Offset = parseQueryInt(q.Get("offset"), "offset", verr)
	if err := verr.OrNil(); err != nil {
		httpx.RespondError(w, err)
		return
	}

	cards, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list job cards", err)
		return
	}
	httpx.List(w, cards, total)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	card, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get job card", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) showByNumber(w http.ResponseWriter, r *http.Request) {
	card, err := h.service.GetByDisplayID(r.Context(), chi.URLParam(r, "displayID"))
	if err != nil {
		h.fail(w, r, "get job card by number", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	card, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, "update job card", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	card, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "delete job card", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	card, err := h.service.Reconcile(r.Context(), id)
	if err != nil {
		h.fail(w, r, "reconcile job card", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) reconcileAll(w http.ResponseWriter, r *http.Request) {
	if h.sweeper != nil {
		if err := h.sweeper.EnqueueReconcileAll(r.Context()); err != nil {
			h.fail(w, r, "enqueue reconcile sweep", err)
			return
		}
		httpx.Data(w, http.StatusAccepted, map[string]any{"queued": true})
		return
	}
	n, err := h.service.ReconcileAll(r.Context())
	if err != nil {
		h.fail(w, r, "reconcile sweep", err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{"reconciled": n})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, group, ok := h.cardGroup(w, r)
	if !ok {
		return
	}
	var in LineItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	card, err := h.service.AddItem(r.Context(), id, group, in)
	if err != nil {
		h.fail(w, r, "add line item", err)
		return
	}
	httpx.Data(w, http.StatusCreated, card)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, group, ok := h.cardGroup(w, r)
	if !ok {
		return
	}
	var patch ItemPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	card, err := h.service.UpdateItem(r.Context(), id, group, chi.URLParam(r, "itemID"), patch)
	if err != nil {
		h.fail(w, r, "update line item", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, group, ok := h.cardGroup(w, r)
	if !ok {
		return
	}
	card, err := h.service.DeleteItem(r.Context(), id, group, chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(w, r, "delete line item", err)
		return
	}
	httpx.Data(w, http.StatusOK, card)
}

func (h *Handler) cardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) cardGroup(w http.ResponseWriter, r *http.Request) (int64, Group, bool) {
	id, ok := h.cardID(w, r)
	if !ok {
		return 0, "", false
	}
	group, err := ParseGroup(chi.URLParam(r, "group"))
	if err != nil {
		httpx.RespondError(w, err)
		return 0, "", false
	}
	return id, group, true
}

func parseQueryInt(s, field string, verr *httpx.ValidationError) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		verr.Add(field, "must be a non-negative integer")
		return 0
	}
	return n
}
