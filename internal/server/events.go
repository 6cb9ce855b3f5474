package server

import (
	"net/http"
	"strconv"

	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/events"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
)

type eventActionRequest struct {
	Status   string           `json:"status"`
	Decision *models.Decision `json:"decision"`
	Notes    *string          `json:"notes"`
}

func parseListQuery(r *http.Request) (events.ListQuery, error) {
	var q events.ListQuery

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseEventStatus(raw)
		if err != nil {
			return q, apperr.Invalid("status must be one of open, ignored, dealt")
		}
		q.Status = &status
	}

	cameraID, err := queryInt64(r, "camera_id")
	if err != nil {
		return q, err
	}
	q.CameraID = cameraID

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return q, apperr.Invalid("limit must be a positive integer")
		}
		q.Limit = limit
	}
	return q, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	evs, err := s.opts.Engine.List(ctx, p, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]realtime.EventView, 0, len(evs))
	for _, ev := range evs {
		views = append(views, realtime.NewEventView(ev))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.eventFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, realtime.NewEventView(ev))
}

func (s *Server) handleEventAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	eventID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req eventActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := s.opts.Engine.Dispose(ctx, p, eventID, events.DispositionInput{
		Status:   models.EventStatus(req.Status),
		Decision: req.Decision,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, realtime.NewEventView(ev))
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ev, ok := s.eventFromPath(w, r)
	if !ok {
		return
	}

	records, err := s.stores.Evidence.ListByEvent(ctx, ev.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]evidenceView, 0, len(records))
	for _, e := range records {
		views = append(views, newEvidenceView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

// eventFromPath loads the {id} event through the engine, which runs the site gate.
func (s *Server) eventFromPath(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	eventID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	ev, err := s.opts.Engine.Get(ctx, p, eventID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return ev, true
}
