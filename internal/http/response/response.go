package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"attachke/internal/common"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error renders a coded error as the API's uniform error envelope. Upstream
// provider failures surface as 502 so callers can tell our faults from the
// payment provider's.
func Error(w http.ResponseWriter, err error) {
	var coded *common.Error
	if !errors.As(err, &coded) {
		coded = common.NewError(common.CodeInternal, "internal server error", err)
	}
	body := errorBody{Error: string(coded.Code), Message: coded.Message, Fields: coded.Fields}
	if coded.Code == common.CodeInternal {
		body.Message = "internal server error"
	}
	JSON(w, statusFor(coded.Code), body)
}

func statusFor(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict:
		return http.StatusConflict
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	case common.CodeUpstreamAuth, common.CodeUpstreamPayment, common.CodeUpstreamQuery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
