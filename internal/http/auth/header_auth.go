package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"modaccess/internal/domain/access"
)

// HeaderAuthenticator trusts the identity headers stamped by the gateway in
// front of this service. The engine itself never authenticates; it only
// consumes an already-resolved requester and department.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{}
}

func (h *HeaderAuthenticator) Authenticate(c *gin.Context) (access.Principal, error) {
	requesterID := strings.TrimSpace(c.GetHeader("X-Requester-ID"))
	if requesterID == "" {
		return access.Principal{}, errors.New("missing requester identity")
	}
	department, err := access.ParseDepartment(c.GetHeader("X-Requester-Department"))
	if err != nil {
		return access.Principal{}, err
	}
	return access.Principal{RequesterID: requesterID, Department: department}, nil
}
