package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"attachke/internal/app"
	"attachke/internal/domain/opportunity"
	"attachke/internal/http/middleware"
	"attachke/internal/http/response"
)

type OpportunityHandler struct {
	opportunities *app.OpportunityService
}

func NewOpportunityHandler(opportunities *app.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{opportunities: opportunities}
}

type listResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := opportunity.Filter{
		Type:     opportunity.Type(query.Get("type")),
		Category: query.Get("category"),
		Location: query.Get("location"),
		Search:   strings.TrimSpace(query.Get("search")),
		Limit:    intQuery(query.Get("limit")),
		Offset:   intQuery(query.Get("offset")),
	}
	items, total, err := h.opportunities.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []opportunity.Opportunity{}
	}
	response.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	o, err := h.opportunities.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, o)
}

func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req app.OpportunityInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.opportunities.Create(r.Context(), req, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 3)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req app.OpportunityInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.opportunities.Update(r.Context(), id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 3)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.opportunities.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

func (h *OpportunityHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 3)
	if err != nil {
		response.Error(w, err)
		return
	}
	approved, err := h.opportunities.Approve(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, approved)
}

func (h *OpportunityHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 3)
	if err != nil {
		response.Error(w, err)
		return
	}
	rejected, err := h.opportunities.Reject(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rejected)
}

func (h *OpportunityHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := opportunity.Filter{
		Status: opportunity.Status(query.Get("status")),
		Limit:  intQuery(query.Get("limit")),
		Offset: intQuery(query.Get("offset")),
	}
	items, err := h.opportunities.ListAll(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []opportunity.Opportunity{}
	}
	response.JSON(w, http.StatusOK, items)
}

func intQuery(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
