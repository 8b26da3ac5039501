package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

// CreateGroup inserts the group and its owner membership atomically.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, name string, ownerID int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create group: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO groups (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("group id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, 'owner')`,
		id, ownerID); err != nil {
		return 0, fmt.Errorf("insert owner member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create group: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id int64) (core.Group, error) {
	var g core.Group
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("get group %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group %d: %w", id, err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGroupsByUser(ctx context.Context, userID int64) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.owner_id
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

func (r *SQLiteRepository) AddGroupMember(ctx context.Context, groupID, userID int64, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)`,
		groupID, userID, role)
	if err != nil {
		return fmt.Errorf("add member %d to group %d: %w", userID, groupID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveGroupMember(ctx context.Context, groupID, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member %d from group %d: %w", userID, groupID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("remove member %d from group %d: %w", userID, groupID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListGroupMembers(ctx context.Context, groupID int64) ([]core.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, user_id, role FROM group_members WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.GroupMember
	for rows.Next() {
		var m core.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// ListUserMemberships returns the ids of every group the user belongs to.
// The distribution job spreads a disbursed salary over all of them.
func (r *SQLiteRepository) ListUserMemberships(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE user_id = ? ORDER BY group_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CreateInvitation(ctx context.Context, groupID int64, email, token string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (group_id, email, token) VALUES (?, ?, ?)`,
		groupID, email, token)
	if err != nil {
		return 0, fmt.Errorf("create invitation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invitation id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetInvitationByToken(ctx context.Context, token string) (core.Invitation, error) {
	var inv core.Invitation
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, email, token, status FROM invitations WHERE token = ?`, token).
		Scan(&inv.ID, &inv.GroupID, &inv.Email, &inv.Token, &inv.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invitation{}, fmt.Errorf("get invitation: %w", ErrNotFound)
	}
	if err != nil {
		return core.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// AcceptInvitation marks the invitation accepted and adds the user as a
// member in one transaction. A non-pending invitation is ErrNotFound.
func (r *SQLiteRepository) AcceptInvitation(ctx context.Context, token string, userID int64) (core.Invitation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Invitation{}, fmt.Errorf("begin accept invitation: %w", err)
	}
	defer tx.Rollback()

	var inv core.Invitation
	err = tx.QueryRowContext(ctx,
		`SELECT id, group_id, email, token, status FROM invitations WHERE token = ? AND status = 'pending'`,
		token).
		Scan(&inv.ID, &inv.GroupID, &inv.Email, &inv.Token, &inv.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invitation{}, fmt.Errorf("accept invitation: %w", ErrNotFound)
	}
	if err != nil {
		return core.Invitation{}, fmt.Errorf("accept invitation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE invitations SET status = 'accepted' WHERE id = ?`, inv.ID); err != nil {
		return core.Invitation{}, fmt.Errorf("mark invitation accepted: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id, role) VALUES (?, ?, 'member')`,
		inv.GroupID, userID); err != nil {
		return core.Invitation{}, fmt.Errorf("add invited member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Invitation{}, fmt.Errorf("commit accept invitation: %w", err)
	}
	inv.Status = "accepted"
	return inv, nil
}

func (r *SQLiteRepository) RevokeInvitation(ctx context.Context, id, groupID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'revoked' WHERE id = ? AND group_id = ? AND status = 'pending'`,
		id, groupID)
	if err != nil {
		return fmt.Errorf("revoke invitation %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke invitation rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("revoke invitation %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListInvitationsByGroup(ctx context.Context, groupID int64) ([]core.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, email, token, status FROM invitations WHERE group_id = ? ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invs []core.Invitation
	for rows.Next() {
		var inv core.Invitation
		if err := rows.Scan(&inv.ID, &inv.GroupID, &inv.Email, &inv.Token, &inv.Status); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return invs, nil
}
