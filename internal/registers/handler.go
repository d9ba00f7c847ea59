package registers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/shared"
)

type kindKey struct{}

// Handler exposes the register JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches register routes. Every route is scoped by register
// kind.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.withKind)
		r.Get("/summary", h.summary)
		r.Get("/days", h.listDays)
		r.Post("/days", h.createDay)
		r.Route("/days/{id}", func(r chi.Router) {
			r.Get("/", h.showDay)
			r.Put("/", h.updateDay)
			r.Delete("/", h.deleteDay)
			r.Post("/entries", h.addEntry)
			r.Put("/entries/{entryID}", h.updateEntry)
			r.Patch("/entries/{entryID}", h.updateEntry)
			r.Delete("/entries/{entryID}", h.deleteEntry)
		})
	})
}

func (h *Handler) withKind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), kindKey{}, kind)))
	})
}

func kindFrom(r *http.Request) Kind {
	k, _ := r.Context().Value(kindKey{}).(Kind)
	return k
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op,
		slog.String("kind", string(kindFrom(r))),
		slog.Any("error", err),
		slog.String("path", r.URL.Path))
	httpx.RespondError(w, err)
}

func (h *Handler) createDay(w http.ResponseWriter, r *http.Request) {
	var req DayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	day, created, err := h.service.CreateDay(r.Context(), kindFrom(r), req)
	if err != nil {
		h.fail(w, r, "save register day", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.Data(w, status, day)
}

func (h *Handler) listDays(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	days, err := h.service.ListDays(r.Context(), kindFrom(r), period)
	if err != nil {
		h.fail(w, r, "list register days", err)
		return
	}
	httpx.List(w, days, len(days))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), kindFrom(r), period)
	if err != nil {
		h.fail(w, r, "summarise register", err)
		return
	}
	httpx.Data(w, http.StatusOK, summary)
}

func (h *Handler) showDay(w http.ResponseWriter, r *http.Request) {
	id, ok := dayID(w, r)
	if !ok {
		return
	}
	day, err := h.service.GetDay(r.Context(), kindFrom(r), id)
	if err != nil {
		h.fail(w, r, "get register day", err)
		return
	}
	httpx.Data(w, http.StatusOK, day)
}

func (h *Handler) updateDay(w http.ResponseWriter, r *http.Request) {
	id, ok := dayID(w, r)
	if !ok {
		return
	}
	var req UpdateDayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	day, err := h.service.UpdateDay(r.Context(), kindFrom(r), id, req)
	if err != nil {
		h.fail(w, r, "update register day", err)
		return
	}
	httpx.Data(w, http.StatusOK, day)
}

func (h *Handler) deleteDay(w http.ResponseWriter, r *http.Request) {
	id, ok := dayID(w, r)
	if !ok {
		return
	}
	day, err := h.service.DeleteDay(r.Context(), kindFrom(r), id)
	if err != nil {
		h.fail(w, r, "delete register day", err)
		return
	}
	httpx.Data(w, http.StatusOK, day)
}

func (h *Handler) addEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := dayID(w, r)
	if !ok {
		return
	}
	var in EntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	day, err := h.service.AddEntry(r.Context(), kindFrom(r), id, in)
	if err != nil {
		h.fail(w, r, "add register entry", err)
		return
	}
	httpx.Data(w, http.StatusCreated, day)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := dayID(w, r)
	if !ok {
		return
	}
	var patch EntryPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	day, err := h.service.UpdateEntry(r.Context(), kindFrom(r), id, chi.URLParam(r, "entryID"), patch)
	if err != nil {
		h.fail(w, r, "update register entry", err)
		return
	}
	httpx.Data(w, http.StatusOK, day)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := dayID(w, r)
	if !ok {
		return
	}
	day, err := h.service.DeleteEntry(r.Context(), kindFrom(r), id, chi.URLParam(r, "entryID"))
	if err != nil {
		h.fail(w, r, "delete register entry", err)
		return
	}
	httpx.Data(w, http.StatusOK, day)
}

// period reads from/to, falling back to start/end.
func (h *Handler) period(w http.ResponseWriter, r *http.Request) (shared.Period, bool) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" {
		from = q.Get("start")
	}
	if to == "" {
		to = q.Get("end")
	}
	period, err := shared.ParsePeriod(from, to, h.service.Location())
	if err != nil {
		httpx.RespondError(w, httpx.NewValidationError("from", err.Error()))
		return shared.Period{}, false
	}
	return period, true
}

func dayID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
