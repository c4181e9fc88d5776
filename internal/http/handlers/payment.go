package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"attachke/internal/app"
	"attachke/internal/common"
	"attachke/internal/http/middleware"
	"attachke/internal/http/response"
	"attachke/internal/mpesa"
)

type PaymentHandler struct {
	payments *app.PaymentService
	limiter  middleware.Limiter
	logger   *zap.SugaredLogger
}

func NewPaymentHandler(payments *app.PaymentService, limiter middleware.Limiter, logger *zap.SugaredLogger) *PaymentHandler {
	return &PaymentHandler{payments: payments, limiter: limiter, logger: logger}
}

type initiateRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req initiateRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.PhoneNumber == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"phoneNumber": "phone number is required"}))
		return
	}
	if h.limiter != nil {
		key := "pay:" + applicationID.String() + ":" + userID.String()
		if !h.limiter.Allow(key, 3, time.Minute) {
			response.Error(w, common.NewError(common.CodeRateLimited, "payment initiation rate limit exceeded", nil))
			return
		}
	}
	result, err := h.payments.Initiate(r.Context(), applicationID, userID, req.PhoneNumber)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	status, err := h.payments.CheckStatus(r.Context(), applicationID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, status)
}

type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Callback receives provider notifications. The provider only understands one
// answer: anything other than a success ack makes it redeliver, and a
// redelivery cannot fix a bad payload or a storage fault. So the handler
// acknowledges unconditionally and leaves recovery to the reconciliation loop.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var envelope mpesa.CallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warnw("undecodable payment callback", "error", err)
		response.JSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Success"})
		return
	}
	if err := h.payments.HandleCallback(r.Context(), envelope); err != nil {
		h.logger.Errorw("payment callback processing failed", "error", err)
	}
	response.JSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Success"})
}
