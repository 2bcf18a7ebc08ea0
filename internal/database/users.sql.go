package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, phone, hashed_password, role, staff_role, customer_id, referral_code,
	is_active, is_phone_verified, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.HashedPassword,
		&i.Role,
		&i.StaffRole,
		&i.CustomerID,
		&i.ReferralCode,
		&i.IsActive,
		&i.IsPhoneVerified,
		&i.LastLoginAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `INSERT INTO users (name, email, phone, hashed_password, role, staff_role, customer_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name           string
	Email          *string
	Phone          string
	HashedPassword string
	Role           string
	StaffRole      *string
	CustomerID     *uuid.UUID
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.HashedPassword,
		arg.Role,
		arg.StaffRole,
		arg.CustomerID,
	)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByLogin = `SELECT ` + userColumns + ` FROM users WHERE phone = $1 OR lower(email) = lower($1) LIMIT 1`

// GetUserByLogin matches either the phone number or the email address.
func (q *Queries) GetUserByLogin(ctx context.Context, login string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByLogin, login))
}

const getUserByReferralCode = `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

func (q *Queries) GetUserByReferralCode(ctx context.Context, code string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByReferralCode, code))
}

const setUserReferralCode = `UPDATE users SET referral_code = COALESCE(referral_code, $2), updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

// SetUserReferralCode stores code unless the user already has one.
func (q *Queries) SetUserReferralCode(ctx context.Context, id uuid.UUID, code string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setUserReferralCode, id, code))
}

const linkUserCustomer = `UPDATE users SET customer_id = $2, updated_at = now() WHERE id = $1`

func (q *Queries) LinkUserCustomer(ctx context.Context, userID, customerID uuid.UUID) error {
	_, err := q.db.Exec(ctx, linkUserCustomer, userID, customerID)
	return err
}

const updateUserDetails = `UPDATE users SET name = $2, email = $3, phone = $4, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserDetailsParams struct {
	ID    uuid.UUID
	Name  string
	Email *string
	Phone string
}

func (q *Queries) UpdateUserDetails(ctx context.Context, arg UpdateUserDetailsParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserDetails, arg.ID, arg.Name, arg.Email, arg.Phone))
}

const updateUserPassword = `UPDATE users SET hashed_password = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	_, err := q.db.Exec(ctx, updateUserPassword, id, hashedPassword)
	return err
}

const touchUserLogin = `UPDATE users SET last_login_at = now() WHERE id = $1`

func (q *Queries) TouchUserLogin(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchUserLogin, id)
	return err
}

type UserFilter struct {
	Role   *string
	Search *string
}

const listUsers = `SELECT ` + userColumns + ` FROM users
WHERE ($1::text IS NULL OR role = $1)
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListUsers(ctx context.Context, f UserFilter, limit, offset int32) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, f.Role, f.Search, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

const countUsers = `SELECT count(*) FROM users
WHERE ($1::text IS NULL OR role = $1)
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')`

func (q *Queries) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsers, f.Role, f.Search).Scan(&n)
	return n, err
}

const updateUserByAdmin = `UPDATE users
SET name = $2, email = $3, phone = $4, role = $5, staff_role = $6, is_active = $7, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserByAdminParams struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     string
	Role      string
	StaffRole *string
	IsActive  bool
}

func (q *Queries) UpdateUserByAdmin(ctx context.Context, arg UpdateUserByAdminParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUserByAdmin,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Role,
		arg.StaffRole,
		arg.IsActive,
	)
	return scanUser(row)
}

const deactivateUser = `UPDATE users SET is_active = false, updated_at = now() WHERE id = $1 RETURNING ` + userColumns

func (q *Queries) DeactivateUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, deactivateUser, id))
}

const countActiveStaff = `SELECT count(*) FROM users WHERE role <> 'customer' AND is_active`

func (q *Queries) CountActiveStaff(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countActiveStaff).Scan(&n)
	return n, err
}
