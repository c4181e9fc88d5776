package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"attachke/internal/common"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return common.NewError(common.CodeValidation, "invalid request body", err)
	}
	return nil
}

// idFromPath extracts the path segment at the given index as a UUID, counting
// from 1: /applications/{id}/payment has the id at index 2.
func idFromPath(r *http.Request, index int) (common.UUID, error) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if index < 1 || index > len(segments) {
		return "", common.NewError(common.CodeValidation, "missing id in path", nil)
	}
	id, err := common.ParseUUID(segments[index-1])
	if err != nil {
		return "", common.NewValidationError("invalid id", map[string]string{"id": "invalid uuid"})
	}
	return id, nil
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}
