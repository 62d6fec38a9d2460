package http

import (
	"net/http"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
)

type PermissionsHandler struct {
	PermissionService *service.PermissionService
}

// HandleList returns the whole permission matrix.
//
//	@Summary		List permissions
//	@Description	Every (role, module) cell ordered by role then module. Requires the Admin role.
//	@Tags			Permissions
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=[]authsdk.Permission}
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid token"
//	@Failure		403	{object}	httpx.Envelope	"Forbidden"
//	@Security		BearerAuth
//	@Router			/permissions [get].
func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.PermissionService.ListAllPermissions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.Permission, 0, len(entries))
	for _, e := range entries {
		out = append(out, toPermission(e))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Permissions retrieved successfully.", out)
}

// HandleSet creates or fully replaces one matrix cell.
//
//	@Summary		Set permission
//	@Description	All four flags are replaced; omitted flags become false. Applying the same request twice changes nothing. Requires the Admin role.
//	@Tags			Permissions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SetPermissionRequest	true	"Cell to write"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.Permission}
//	@Failure		400		{object}	httpx.Envelope	"Malformed body"
//	@Failure		403		{object}	httpx.Envelope	"Forbidden"
//	@Failure		404		{object}	httpx.Envelope	"Role or module not found"
//	@Security		BearerAuth
//	@Router			/permissions [put].
func (h *PermissionsHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetPermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.PermissionService.SetPermission(r.Context(), req.Role, req.Module, domain.Grants{
		Create: req.Create,
		Read:   req.Read,
		Update: req.Update,
		Delete: req.Delete,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Role permission updated successfully.", toPermission(entry))
}
