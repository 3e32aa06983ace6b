package handler

import (
	"net/http"

	"github.com/go-notify-nosql/internal/application/listener"
)

// StartupHandler starts the change-feed listener on demand. The listener is
// started at boot too; this endpoint exists so operators can bring it back
// after a feed outage without restarting the process.
type StartupHandler struct {
	listener *listener.Listener
}

func NewStartupHandler(l *listener.Listener) *StartupHandler {
	return &StartupHandler{listener: l}
}

func (h *StartupHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.listener.Start(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListenerEnvelope{
		Message: "notification listener running",
		State:   h.listener.State().String(),
	})
}

func (h *StartupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ListenerEnvelope{
		Message: "listener status",
		State:   h.listener.State().String(),
	})
}
