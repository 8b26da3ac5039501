package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type groupResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"ownerId"`
}

type groupMemberResponse struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.repo.ListGroupsByUser(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list groups")
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID})
	}
	writeJSON(w, http.StatusOK, out)
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	group := core.Group{Name: sanitizeInput(req.Name), OwnerID: userID}
	if err := group.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.repo.CreateGroup(r.Context(), group.Name, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create group")
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{ID: id, Name: group.Name, OwnerID: userID})
}

// memberGroup loads a group the caller belongs to; returns nil after
// writing the error response otherwise.
func (s *Server) memberGroup(w http.ResponseWriter, r *http.Request) *core.Group {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	group, err := s.repo.GetGroup(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "group not found")
		return nil
	}

	ok, err := s.repo.IsGroupMember(r.Context(), id, userFromContext(r.Context()))
	if err != nil || !ok {
		writeError(w, http.StatusForbidden, "not a group member")
		return nil
	}
	return &group
}

type groupDetailResponse struct {
	groupResponse
	Members []groupMemberResponse `json:"members"`
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}

	members, err := s.repo.ListGroupMembers(r.Context(), group.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list members")
		return
	}

	out := groupDetailResponse{
		groupResponse: groupResponse{ID: group.ID, Name: group.Name, OwnerID: group.OwnerID},
		Members:       make([]groupMemberResponse, 0, len(members)),
	}
	for _, m := range members {
		out.Members = append(out.Members, groupMemberResponse{UserID: m.UserID, Role: m.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

type addMemberRequest struct {
	UserID int64 `json:"userId"`
}

// Member mutations are owner-only.
func (s *Server) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}
	if group.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "only the owner can add members")
		return
	}

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.repo.GetUser(r.Context(), req.UserID); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown user")
		return
	}

	if err := s.repo.AddGroupMember(r.Context(), group.ID, req.UserID, "member"); err != nil {
		writeError(w, http.StatusConflict, "user is already a member")
		return
	}
	writeJSON(w, http.StatusCreated, groupMemberResponse{UserID: req.UserID, Role: "member"})
}

func (s *Server) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}

	uid, err := pathID(r, "uid")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := userFromContext(r.Context())
	// Members may leave on their own; removing others is owner-only.
	if uid != actor && group.OwnerID != actor {
		writeError(w, http.StatusForbidden, "only the owner can remove members")
		return
	}
	if uid == group.OwnerID {
		writeError(w, http.StatusUnprocessableEntity, "the owner cannot be removed")
		return
	}

	if err := s.repo.RemoveGroupMember(r.Context(), group.ID, uid); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "remove member")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type groupBudgetResponse struct {
	GroupID     int64  `json:"groupId"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
}

func (s *Server) handleGetGroupBudget(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}

	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := groupBudgetResponse{GroupID: group.ID, Year: month.Year, Month: month.Month, Amount: "0.00"}
	gb, err := s.repo.GetGroupBudget(r.Context(), group.ID, month)
	if err == nil {
		out.Amount = gb.Amount.String()
		out.AmountCents = gb.Amount.Cents
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "get group budget")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type createInvitationRequest struct {
	Email string `json:"email"`
}

type invitationResponse struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
	Status string `json:"status"`
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}
	if group.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "only the owner can invite")
		return
	}

	var req createInvitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := sanitizeInput(req.Email)
	if email == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing email")
		return
	}

	token := uuid.NewString()
	id, err := s.repo.CreateInvitation(r.Context(), group.ID, email, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create invitation")
		return
	}
	writeJSON(w, http.StatusCreated, invitationResponse{ID: id, Email: email, Token: token, Status: "pending"})
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}
	if group.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "only the owner can list invitations")
		return
	}

	invs, err := s.repo.ListInvitationsByGroup(r.Context(), group.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list invitations")
		return
	}
	out := make([]invitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, invitationResponse{ID: inv.ID, Email: inv.Email, Token: inv.Token, Status: inv.Status})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}
	if group.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "only the owner can revoke invitations")
		return
	}

	invID, err := pathID(r, "iid")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.RevokeInvitation(r.Context(), invID, group.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invitation not found or not pending")
			return
		}
		writeError(w, http.StatusInternalServerError, "revoke invitation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleListGroupTransactions shows the shared ledger of a group for a
// month; any member may read it.
func (s *Server) handleListGroupTransactions(w http.ResponseWriter, r *http.Request) {
	group := s.memberGroup(w, r)
	if group == nil {
		return
	}

	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.repo.ListTransactionsByGroup(r.Context(), group.ID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list group transactions")
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := s.repo.AcceptInvitation(r.Context(), sanitizeInput(req.Token), userFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invitation not found or already used")
			return
		}
		writeError(w, http.StatusInternalServerError, "accept invitation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "groupId": inv.GroupID})
}
