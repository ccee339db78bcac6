package requests

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"modaccess/internal/domain/access"
	"modaccess/internal/http/common"
	"modaccess/internal/usecase"
)

type Handler struct {
	Service *usecase.AccessService
}

type listResponse struct {
	Items []common.RequestResponse `json:"items"`
}

func NewHandler(service *usecase.AccessService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) HandleCreate(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Modules       []string `json:"modules"`
		Justification string   `json:"justification"`
		Urgent        bool     `json:"urgent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	created, err := h.Service.Create(c.Request.Context(), usecase.CreateInput{
		RequesterID:   principal.RequesterID,
		Department:    principal.Department,
		ModuleIDs:     req.Modules,
		Justification: req.Justification,
		Urgent:        req.Urgent,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": common.ToRequestResponse(created)})
}

func (h *Handler) HandleList(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	filter := usecase.ListFilter{RequesterID: principal.RequesterID}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch access.Status(strings.ToUpper(status)) {
		case access.StatusActive, access.StatusDenied, access.StatusCancelled:
			filter.Status = access.Status(strings.ToUpper(status))
		default:
			common.WriteErrorCode(c, http.StatusBadRequest, "VALIDATION", "unknown status filter")
			return
		}
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	items, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]common.RequestResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, common.ToRequestResponse(item))
	}
	c.JSON(http.StatusOK, listResponse{Items: resp})
}

func (h *Handler) HandleGet(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	req, err := h.Service.Get(c.Request.Context(), requestID, principal.RequesterID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": common.ToRequestResponse(req)})
}

func (h *Handler) HandleHistory(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	entries, err := h.Service.HistoryFor(c.Request.Context(), requestID, principal.RequesterID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]common.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, common.ToHistoryResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"history": resp})
}

func (h *Handler) HandleRenew(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	renewed, err := h.Service.Renew(c.Request.Context(), requestID, principal.RequesterID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": common.ToRequestResponse(renewed)})
}

func (h *Handler) HandleCancel(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	cancelled, err := h.Service.Cancel(c.Request.Context(), requestID, principal.RequesterID, req.Reason)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": common.ToRequestResponse(cancelled)})
}

func requestIDParam(c *gin.Context) (string, bool) {
	value := strings.TrimSpace(c.Param("id"))
	if value == "" {
		common.WriteErrorCode(c, http.StatusBadRequest, "VALIDATION", "id is required")
		return "", false
	}
	return value, true
}
