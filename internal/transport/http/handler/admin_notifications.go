package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-notify-nosql/internal/application/bulk"
	"github.com/go-notify-nosql/internal/application/notification"
	"github.com/go-notify-nosql/internal/domain"
	"github.com/go-notify-nosql/internal/pkg/validate"
)

// AdminNotificationHandler handles the admin-only send endpoints.
type AdminNotificationHandler struct {
	svc        notification.Service
	dispatcher *bulk.Dispatcher
}

func NewAdminNotificationHandler(svc notification.Service, dispatcher *bulk.Dispatcher) *AdminNotificationHandler {
	return &AdminNotificationHandler{svc: svc, dispatcher: dispatcher}
}

func (h *AdminNotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.svc.Send(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *AdminNotificationHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req domain.SendBulkNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Filters != nil {
		if err := validate.Struct(req.Filters); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	result, err := h.dispatcher.SendBulk(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
