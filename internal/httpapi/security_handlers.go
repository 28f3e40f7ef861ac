package httpapi

import (
	"encoding/xml"
	"net/http"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

// The /user-security routes do no work of their own. Each one answers
// SUCCESS once the access policy has let the request through, which makes
// them handy for checking role, authority and ownership rules from a client.

type principalRest struct {
	XMLName     xml.Name `json:"-" xml:"principal"`
	UserID      string   `json:"userId" xml:"userId"`
	Email       string   `json:"email" xml:"email"`
	Verified    bool     `json:"emailVerified" xml:"emailVerified"`
	Permissions []string `json:"permissions" xml:"permissions>permission"`
}

func (a *API) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	respond(w, r, http.StatusOK, principalRest{
		UserID:      p.UserID,
		Email:       p.Email,
		Verified:    p.Enabled,
		Permissions: p.PermissionList(),
	})
}

func (a *API) handleAdminRoleCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, operationResult("SECURED_ROLE", true))
}

func (a *API) handleDeleteAuthorityCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, operationResult("SECURED_AUTHORITY", true))
}

func (a *API) handleOwnerOrAdminCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, operationResult("OWNER_OR_ADMIN", true))
}
