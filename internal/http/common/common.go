package common

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"modaccess/internal/domain/access"
)

const principalKey = "principal"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RequestResponse struct {
	ID            string   `json:"id"`
	Protocol      string   `json:"protocol"`
	RequesterID   string   `json:"requester_id"`
	Department    string   `json:"department"`
	Modules       []string `json:"modules"`
	Justification string   `json:"justification"`
	Urgent        bool     `json:"urgent"`
	Status        string   `json:"status"`
	DenialReason  string   `json:"denial_reason,omitempty"`
	CancelReason  string   `json:"cancel_reason,omitempty"`
	RenewedFrom   string   `json:"renewed_from,omitempty"`
	RequestedAt   string   `json:"requested_at"`
	ApprovedAt    *string  `json:"approved_at,omitempty"`
	ExpiresAt     *string  `json:"expires_at,omitempty"`
	CancelledAt   *string  `json:"cancelled_at,omitempty"`
}

type HistoryResponse struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	Action      string `json:"action"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurred_at"`
}

type Authenticator interface {
	Authenticate(*gin.Context) (access.Principal, error)
}

func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticator == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "auth misconfigured"})
			return
		}
		principal, err := authenticator.Authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (access.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "principal missing")
		return access.Principal{}, false
	}
	principal, ok := value.(access.Principal)
	if !ok {
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "principal invalid")
		return access.Principal{}, false
	}
	return principal, true
}

func ToRequestResponse(req access.Request) RequestResponse {
	resp := RequestResponse{
		ID:            req.ID,
		Protocol:      req.Protocol,
		RequesterID:   req.RequesterID,
		Department:    string(req.Department),
		Modules:       req.Modules,
		Justification: req.Justification,
		Urgent:        req.Urgent,
		Status:        string(req.Status),
		DenialReason:  req.DenialReason,
		CancelReason:  req.CancelReason,
		RenewedFrom:   req.RenewedFrom,
		RequestedAt:   req.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
	resp.ApprovedAt = formatTime(req.ApprovedAt)
	resp.ExpiresAt = formatTime(req.ExpiresAt)
	resp.CancelledAt = formatTime(req.CancelledAt)
	return resp
}

func ToHistoryResponse(entry access.HistoryEntry) HistoryResponse {
	return HistoryResponse{
		ID:          entry.ID,
		RequestID:   entry.RequestID,
		Action:      string(entry.Action),
		Description: entry.Description,
		OccurredAt:  entry.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339Nano)
	return &formatted
}

// WriteError maps domain outcomes onto the wire. A denied request never
// reaches here: denial is a persisted result, not an error.
func WriteError(c *gin.Context, err error) {
	var validation *access.ValidationError
	var business *access.BusinessError
	switch {
	case errors.As(err, &validation):
		WriteErrorCode(c, http.StatusBadRequest, "VALIDATION", validation.Error())
	case errors.As(err, &business):
		WriteErrorCode(c, http.StatusUnprocessableEntity, "BUSINESS_RULE", business.Reason)
	case errors.Is(err, access.ErrNotFound):
		WriteErrorCode(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, access.ErrInvalidState):
		WriteErrorCode(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, access.ErrNotEligible):
		WriteErrorCode(c, http.StatusConflict, "NOT_ELIGIBLE", err.Error())
	default:
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func WriteErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
