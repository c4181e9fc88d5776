package handlers

import (
	"net/http"

	"attachke/internal/app"
	"attachke/internal/common"
	"attachke/internal/domain/application"
	"attachke/internal/http/middleware"
	"attachke/internal/http/response"
)

type ApplicationHandler struct {
	applications *app.ApplicationService
	fee          float64
}

func NewApplicationHandler(applications *app.ApplicationService, fee float64) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, fee: fee}
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req app.ApplicationInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.applications.Create(r.Context(), req, applicantID, h.fee)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	id, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req app.ApplicationInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.applications.Update(r.Context(), id, req, applicantID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	role, _ := middleware.RoleFromContext(r.Context())
	id, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	found, err := h.applications.Get(r.Context(), id, userID, role)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, found)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	items, err := h.applications.ListMine(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []application.Application{}
	}
	response.JSON(w, http.StatusOK, items)
}

// ListForReview is the admin queue; it defaults to submitted applications so
// drafts never surface.
func (h *ApplicationHandler) ListForReview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := application.Filter{
		Status: application.Status(query.Get("status")),
		Limit:  intQuery(query.Get("limit")),
		Offset: intQuery(query.Get("offset")),
	}
	if filter.Status == "" {
		filter.Status = application.StatusSubmitted
	}
	items, total, err := h.applications.ListForReview(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []application.Application{}
	}
	response.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

type reviewRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	id, err := idFromPath(r, 3)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Status == "" {
		response.Error(w, common.NewError(common.CodeValidation, "status is required", nil))
		return
	}
	updated, err := h.applications.Review(r.Context(), id, application.Status(req.Status), adminID, req.RejectionReason)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}
