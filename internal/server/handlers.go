package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"yaniv/internal/apierr"
	"yaniv/internal/engine"
	"yaniv/internal/room"
)

type handlers struct {
	mgr *room.Manager
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := mapError(err)
	writeJSON(w, apiErr.Status, apierr.Envelope{Error: apiErr.Message})
}

// mapError translates room/engine errors to HTTP status codes; an
// *apierr.Error passes through with its own status. Anything
// unrecognized becomes a 500, since it indicates a programming error
// rather than a rejected client request.
func mapError(err error) *apierr.Error {
	var apiErr *apierr.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, room.ErrNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, room.ErrForbidden):
		return apierr.Forbidden(err.Error())
	case errors.Is(err, room.ErrInvalidState):
		return apierr.Conflict(err.Error())
	case errors.Is(err, room.ErrValidation):
		return apierr.BadRequest(err.Error())
	case errors.Is(err, room.ErrUnknownMember):
		return apierr.NotFound(err.Error())
	case errors.Is(err, engine.ErrIllegalAction):
		return apierr.BadRequest(err.Error())
	default:
		return apierr.Internal("internal error")
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type createRequest struct {
	Name    string `json:"name"`
	Pid     string `json:"pid"`
	AICount int    `json:"aiCount"`
}

type createResponse struct {
	Code string `json:"code"`
	Pid  string `json:"pid"`
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	code, pid, err := h.mgr.CreateRoom(req.Name, req.Pid, req.AICount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{Code: code, Pid: pid})
}

type joinRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Pid  string `json:"pid"`
}

type joinResponse struct {
	Code string `json:"code"`
	Pid  string `json:"pid"`
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	pid, err := h.mgr.JoinRoom(req.Code, req.Pid, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{Code: strings.ToLower(req.Code), Pid: pid})
}

type codePidRequest struct {
	Code string `json:"code"`
	Pid  string `json:"pid"`
}

func (h *handlers) leave(w http.ResponseWriter, r *http.Request) {
	var req codePidRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	if err := h.mgr.LeaveRoom(req.Code, req.Pid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	pid := r.URL.Query().Get("pid")
	snap, err := h.mgr.GetSnapshot(code, pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type optionsRequest struct {
	Code             string `json:"code"`
	Pid              string `json:"pid"`
	SlamdownsAllowed bool   `json:"slamdownsAllowed"`
}

func (h *handlers) setOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	opts, err := h.mgr.SetOptions(req.Code, req.Pid, req.SlamdownsAllowed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "options": opts})
}

type startRequest struct {
	Code             string `json:"code"`
	Pid              string `json:"pid"`
	SlamdownsAllowed *bool  `json:"slamdownsAllowed"`
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	if err := h.mgr.StartGame(req.Code, req.Pid, req.SlamdownsAllowed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type actionRequest struct {
	Code            string `json:"code"`
	Pid             string `json:"pid"`
	Discard         []int  `json:"discard"`
	Draw            *string `json:"draw"`
	DeclareYaniv    bool   `json:"declareYaniv"`
	DeclareSlamdown bool   `json:"declareSlamdown"`
}

func (h *handlers) action(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	err := h.mgr.Action(req.Code, req.Pid, room.ActionRequest{
		Discard:         req.Discard,
		Draw:            req.Draw,
		DeclareYaniv:    req.DeclareYaniv,
		DeclareSlamdown: req.DeclareSlamdown,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type playAgainResponse struct {
	NextRoom string `json:"nextRoom"`
}

func (h *handlers) playAgain(w http.ResponseWriter, r *http.Request) {
	var req codePidRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apierr.BadRequest("malformed request body"))
		return
	}
	code, err := h.mgr.PlayAgain(req.Code, req.Pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playAgainResponse{NextRoom: code})
}

const heartbeatInterval = 25 * time.Second

// events streams room snapshots to one connection over server-sent
// events: an initial full snapshot, then one push per room mutation, with
// a periodic heartbeat comment to keep intermediaries from closing an
// idle connection.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "code"))
	pid := chi.URLParam(r, "pid")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apierr.Internal("streaming unsupported"))
		return
	}

	snap, err := h.mgr.GetSnapshot(code, pid)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.mgr.Hub().Subscribe(code, pid)
	defer h.mgr.Hub().Unregister(code, pid, sub)

	h.mgr.Hub().PublishOne(sub, snap)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-sub.Chan():
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		}
	}
}
