package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	ErrAccountDisabled    = apperr.Unauthorized("Account is deactivated")
	ErrAccountExists      = apperr.Conflict("User already exists with this email or phone")
	ErrCustomerExists     = apperr.Conflict("Customer already exists with this phone")
	ErrWrongPassword      = apperr.Validation("Current password is incorrect")
	ErrWeakPassword       = apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	ErrNameRequired       = apperr.Validation("Name is required")
	ErrPhoneRequired      = apperr.Validation("Phone is required")
	ErrInvalidStaffRole   = apperr.Validation("Invalid role")
)

// AccountStore defines the DB methods needed for logins and profiles.
// Satisfied by *database.Queries.
type AccountStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserByLogin(ctx context.Context, login string) (database.User, error)
	LinkUserCustomer(ctx context.Context, userID, customerID uuid.UUID) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
	TouchUserLogin(ctx context.Context, id uuid.UUID) error
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (database.Customer, error)
	AttachCustomerUser(ctx context.Context, customerID, userID uuid.UUID) (database.Customer, error)
	CreateWallet(ctx context.Context, customerID uuid.UUID) (database.Wallet, error)
}

// NewAccountStore creates an AccountStore from a DBTX (pool or tx).
type NewAccountStore func(db database.DBTX) AccountStore

// AccountService owns credentials and the user/customer/wallet triple.
type AccountService struct {
	pool     TxBeginner
	newStore NewAccountStore
	store    AccountStore
	cost     int
}

// NewAccountService creates a new AccountService.
func NewAccountService(pool TxBeginner, newStore NewAccountStore, store AccountStore) *AccountService {
	return &AccountService{pool: pool, newStore: newStore, store: store, cost: bcrypt.DefaultCost}
}

// RegisterRequest is a self-service customer sign-up.
type RegisterRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Registration is everything created by Register.
type Registration struct {
	User     database.User     `json:"user"`
	Customer database.Customer `json:"customer"`
}

// Register creates the login, its customer profile and wallet in one
// transaction. A walk-in customer with the same phone and no login is
// claimed instead of duplicated.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Phone == "" {
		return nil, ErrPhoneRequired
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	var out Registration
	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		user, err := store.CreateUser(ctx, database.CreateUserParams{
			Name:           req.Name,
			Email:          strPtr(strings.ToLower(strings.TrimSpace(req.Email))),
			Phone:          req.Phone,
			HashedPassword: hash,
			Role:           enum.UserRoleCustomer,
		})
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				return ErrAccountExists
			}
			return fmt.Errorf("create user: %w", err)
		}

		customer, err := claimOrCreateCustomer(ctx, store, user)
		if err != nil {
			return err
		}
		if err := store.LinkUserCustomer(ctx, user.ID, customer.ID); err != nil {
			return fmt.Errorf("link customer: %w", err)
		}
		user.CustomerID = &customer.ID
		out = Registration{User: user, Customer: customer}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func claimOrCreateCustomer(ctx context.Context, store AccountStore, user database.User) (database.Customer, error) {
	existing, err := store.GetCustomerByPhone(ctx, user.Phone)
	switch {
	case err == nil && existing.UserID == nil:
		c, err := store.AttachCustomerUser(ctx, existing.ID, user.ID)
		if err != nil {
			return c, fmt.Errorf("attach customer: %w", err)
		}
		return c, nil
	case err == nil:
		return existing, ErrAccountExists
	case apperr.KindOf(err) != apperr.KindNotFound:
		return existing, fmt.Errorf("get customer by phone: %w", err)
	}

	c, err := store.CreateCustomer(ctx, database.CreateCustomerParams{
		UserID: &user.ID,
		Name:   user.Name,
		Phone:  user.Phone,
		Email:  user.Email,
		Status: enum.CustomerStatusActive,
	})
	if err != nil {
		return c, fmt.Errorf("create customer: %w", err)
	}
	if _, err := store.CreateWallet(ctx, c.ID); err != nil {
		return c, fmt.Errorf("create wallet: %w", err)
	}
	return c, nil
}

// Authenticate checks a phone-or-email login and stamps last_login_at.
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (*database.User, error) {
	user, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := s.store.TouchUserLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("touch login: %w", err)
	}
	return &user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return notFound(err, apperr.NotFound("User not found"), "get user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// StaffRequest creates a back-office account.
type StaffRequest struct {
	Name      string
	Email     string
	Phone     string
	Password  string
	Role      string
	StaffRole string
}

// CreateStaff creates a staff, manager or admin login.
func (s *AccountService) CreateStaff(ctx context.Context, req StaffRequest) (*database.User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, ErrPhoneRequired
	}
	if !enum.IsStaffRole(req.Role) {
		return nil, ErrInvalidStaffRole
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, database.CreateUserParams{
		Name:           strings.TrimSpace(req.Name),
		Email:          strPtr(strings.ToLower(strings.TrimSpace(req.Email))),
		Phone:          strings.TrimSpace(req.Phone),
		HashedPassword: hash,
		Role:           req.Role,
		StaffRole:      strPtr(req.StaffRole),
	})
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// WalkInRequest is a customer created at the counter by staff.
type WalkInRequest struct {
	Name  string
	Phone string
	Email string
}

// CreateWalkInCustomer creates a guest customer and its wallet.
func (s *AccountService) CreateWalkInCustomer(ctx context.Context, req WalkInRequest) (*database.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, ErrPhoneRequired
	}

	var c database.Customer
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)
		var err error
		c, err = store.CreateCustomer(ctx, database.CreateCustomerParams{
			Name:   strings.TrimSpace(req.Name),
			Phone:  strings.TrimSpace(req.Phone),
			Email:  strPtr(strings.TrimSpace(req.Email)),
			Status: enum.CustomerStatusGuest,
		})
		if err != nil {
			if database.IsUniqueViolation(err, "customers_phone_key") {
				return ErrCustomerExists
			}
			return fmt.Errorf("create customer: %w", err)
		}
		if _, err := store.CreateWallet(ctx, c.ID); err != nil {
			return fmt.Errorf("create wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// hash checks the length of a new password and hashes it.
func (s *AccountService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
