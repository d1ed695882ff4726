package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/api/validators"
)

// SubmitRequest carries optional notes for the kitchen. The body may be omitted.
type SubmitRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

type UpdateStatusRequest struct {
	Status          string `json:"status" validate:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
	Reason          string `json:"reason,omitempty" validate:"max=200"`
}

type AssignRequest struct {
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
}

func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, dest)
}
