package http

import (
	"net/http"

	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
)

type UsersHandler struct {
	AccountService *service.AccountService
}

// accountID reads the {id} path parameter. Malformed IDs cannot name an
// account, so they are answered with 404 without touching the store.
func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !idx.Valid(id) {
		writeServiceError(w, r, service.ErrAccountNotFound)
		return "", false
	}
	return id, true
}

// HandleList lists every account.
//
//	@Summary		List users
//	@Description	Requires the Admin role and read permission on User Management.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=[]authsdk.User}
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid token"
//	@Failure		403	{object}	httpx.Envelope	"Forbidden"
//	@Security		BearerAuth
//	@Router			/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.AccountService.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	users := make([]authsdk.User, 0, len(views))
	for _, v := range views {
		users = append(users, toUser(v))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Users retrieved successfully.", users)
}

// HandleGet returns one account.
//
//	@Summary		Get user
//	@Description	Allowed for the account itself or an Admin.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"
//	@Success		200	{object}	httpx.Envelope{data=authsdk.User}
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid token"
//	@Failure		403	{object}	httpx.Envelope	"Forbidden"
//	@Failure		404	{object}	httpx.Envelope	"User not found"
//	@Security		BearerAuth
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	view, err := h.AccountService.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User retrieved successfully.", toUser(view))
}

// HandleUpdate changes the name and/or email of an account.
//
//	@Summary		Update user
//	@Description	Allowed for the account itself or an Admin. A new email must be verified again.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Account ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.User}
//	@Failure		400		{object}	httpx.Envelope	"Validation failed"
//	@Failure		403		{object}	httpx.Envelope	"Forbidden"
//	@Failure		404		{object}	httpx.Envelope	"User not found"
//	@Failure		409		{object}	httpx.Envelope	"Email already registered"
//	@Security		BearerAuth
//	@Router			/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req authsdk.UpdateUserRequest
	if !decodeBody(w, r, &req) || !validateBody(w, req.Validate()) {
		return
	}

	view, err := h.AccountService.UpdateProfile(r.Context(), id, service.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User updated successfully.", toUser(view))
}

// HandleDelete hard-deletes an account.
//
//	@Summary		Delete user
//	@Description	Requires the Admin role and delete permission on User Management. The activity trail is kept.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		403	{object}	httpx.Envelope	"Forbidden"
//	@Failure		404	{object}	httpx.Envelope	"User not found"
//	@Security		BearerAuth
//	@Router			/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	if err := h.AccountService.DeleteAccount(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User deleted successfully.", nil)
}

// HandleAssignRole replaces an account's role.
//
//	@Summary		Assign role
//	@Description	Requires the Admin role and update permission on User Management. Existing tokens keep the old role until they expire.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Account ID"
//	@Param			request	body		authsdk.AssignRoleRequest	true	"New role"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.User}
//	@Failure		400		{object}	httpx.Envelope	"Invalid role"
//	@Failure		403		{object}	httpx.Envelope	"Forbidden"
//	@Failure		404		{object}	httpx.Envelope	"User not found"
//	@Security		BearerAuth
//	@Router			/users/{id}/role [put].
func (h *UsersHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req authsdk.AssignRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.AccountService.AssignRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User role updated successfully.", toUser(view))
}

// HandleActivity returns an account's audit trail.
//
//	@Summary		List user activity
//	@Description	Allowed for the account itself or an Admin. Trails of deleted accounts stay readable.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"
//	@Success		200	{object}	httpx.Envelope{data=[]authsdk.Activity}
//	@Failure		403	{object}	httpx.Envelope	"Forbidden"
//	@Failure		404	{object}	httpx.Envelope	"Malformed account ID"
//	@Security		BearerAuth
//	@Router			/users/{id}/activity [get].
func (h *UsersHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	records, err := h.AccountService.ListActivity(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.Activity, 0, len(records))
	for _, rec := range records {
		out = append(out, toActivity(rec))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Activity retrieved successfully.", out)
}
