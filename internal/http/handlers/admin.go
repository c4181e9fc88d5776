package handlers

import (
	"net/http"

	"attachke/internal/app"
	"attachke/internal/http/response"
)

type AdminHandler struct {
	admin  *app.AdminService
	ingest *app.IngestService
}

func NewAdminHandler(admin *app.AdminService, ingest *app.IngestService) *AdminHandler {
	return &AdminHandler{admin: admin, ingest: ingest}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) SyncAdzuna(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingest.SyncAdzuna(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *AdminHandler) SyncJooble(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingest.SyncJooble(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
