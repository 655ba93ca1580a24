package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

func (s *Store) GetProvider(ctx context.Context, id string) (tenancy.Provider, error) {
	var p tenancy.Provider
	err := s.db.GetContext(ctx, &p, `
		select id, name, status, created_at, updated_at
		from providers where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Provider{}, fmt.Errorf("%w: provider %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return tenancy.Provider{}, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProvider(ctx context.Context, p tenancy.Provider) error {
	_, err := s.db.ExecContext(ctx, `
		insert into providers (id, name, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5)
		on conflict (id) do update
		set name=excluded.name, status=excluded.status, updated_at=excluded.updated_at`,
		p.ID, p.Name, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save provider: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (tenancy.User, error) {
	return s.getUser(ctx, `id=$1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (tenancy.User, error) {
	return s.getUser(ctx, `lower(email)=lower($1)`, email)
}

func (s *Store) getUser(ctx context.Context, where, arg string) (tenancy.User, error) {
	var u tenancy.User
	var providerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		select id, provider_id, email, password_hash, status, created_at, updated_at
		from users where `+where, arg).
		Scan(&u.ID, &providerID, &u.Email, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.User{}, fmt.Errorf("%w: user %s", fault.ErrNotFound, arg)
	}
	if err != nil {
		return tenancy.User{}, fmt.Errorf("get user: %w", err)
	}
	u.ProviderID = providerID.String
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, u tenancy.User) error {
	var providerID sql.NullString
	if u.ProviderID != "" {
		providerID = sql.NullString{String: u.ProviderID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, provider_id, email, password_hash, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (id) do update
		set provider_id=excluded.provider_id, email=excluded.email,
		    password_hash=excluded.password_hash, status=excluded.status,
		    updated_at=excluded.updated_at`,
		u.ID, providerID, u.Email, u.PasswordHash, u.Status, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, userID string) ([]tenancy.RoleAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, role, role_name, domain, group_name,
		       experience_level, technology_level, status, valid_from, valid_to, created_at
		from role_assignments where user_id=$1 order by created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []tenancy.RoleAssignment
	for rows.Next() {
		var a tenancy.RoleAssignment
		var validTo sql.NullTime
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.RoleName, &a.Domain, &a.GroupName,
			&a.ExperienceLevel, &a.TechnologyLevel, &a.Status, &a.ValidFrom, &validTo, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.ValidTo = fromNullTime(validTo)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveAssignment(ctx context.Context, a tenancy.RoleAssignment) error {
	_, err := s.db.ExecContext(ctx, `
		insert into role_assignments
		  (id, user_id, role, role_name, domain, group_name,
		   experience_level, technology_level, status, valid_from, valid_to, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		on conflict (id) do update
		set status=excluded.status, valid_to=excluded.valid_to`,
		a.ID, a.UserID, a.Role, a.RoleName, a.Domain, a.GroupName,
		a.ExperienceLevel, a.TechnologyLevel, a.Status, a.ValidFrom, nullTime(a.ValidTo), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func (s *Store) RevokeAssignment(ctx context.Context, assignmentID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update role_assignments set status=$2, valid_to=$3
		where id=$1 and status<>$2`,
		assignmentID, tenancy.AssignmentRevoked, at)
	if err != nil {
		return fmt.Errorf("revoke assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either unknown or already revoked; distinguish for the caller.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`select exists(select 1 from role_assignments where id=$1)`, assignmentID).Scan(&exists); err != nil {
			return fmt.Errorf("revoke assignment: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: assignment %s", fault.ErrNotFound, assignmentID)
		}
	}
	return nil
}
