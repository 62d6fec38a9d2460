package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when an optimistic update finds the row changed
	// (or gone) since it was read.
	ErrConflict = errors.New("store: concurrent modification")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes one sub-repository per entity so transactions stay explicit: a
// Tx exposes the same repositories but cannot start another transaction.
type Store interface {
	Accounts() Accounts
	Roles() Roles
	Modules() Modules
	RolePermissions() RolePermissions
	Activities() Activities

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail matches case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// ListAccounts returns every account ordered by creation.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateAccount writes the mutable columns of a, provided the stored
	// version still equals a.Version, and returns the new version. Returns
	// ErrConflict when no row matched, ErrAlreadyExists when the new email is
	// taken.
	UpdateAccount(ctx context.Context, a domain.Account) (int64, error)

	// DeleteAccount hard-deletes the account. Returns ErrNotFound when absent.
	DeleteAccount(ctx context.Context, id string) error

	CountAccounts(ctx context.Context) (int, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name domain.RoleName) (domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// EnsureRole returns the role with the given name, creating it if needed.
	EnsureRole(ctx context.Context, name domain.RoleName) (domain.Role, error)
}

type Modules interface {
	GetModuleByID(ctx context.Context, id string) (domain.Module, error)

	// GetModuleByName matches case-insensitively.
	GetModuleByName(ctx context.Context, name string) (domain.Module, error)
	ListModules(ctx context.Context) ([]domain.Module, error)

	// EnsureModule returns the module with the given name, creating it if needed.
	EnsureModule(ctx context.Context, name string) (domain.Module, error)
}

type RolePermissions interface {
	GetRolePermission(ctx context.Context, roleID, moduleID string) (domain.RolePermission, error)

	// UpsertRolePermission creates the (role, module) cell or replaces all four
	// flags of the existing one, returning the stored row.
	UpsertRolePermission(ctx context.Context, p domain.RolePermission) (domain.RolePermission, error)

	// CreateRolePermissionIfAbsent inserts p unless the (role, module) cell
	// already exists. Reports whether a row was inserted.
	CreateRolePermissionIfAbsent(ctx context.Context, p domain.RolePermission) (bool, error)

	// ListPermissionEntries flattens the matrix ordered by role then module.
	ListPermissionEntries(ctx context.Context) ([]domain.PermissionEntry, error)

	CountRolePermissions(ctx context.Context) (int, error)
}

type Activities interface {
	AppendActivity(ctx context.Context, rec domain.ActivityRecord) error

	// ListActivitiesByAccount returns the trail for an account, oldest first.
	// Works for deleted accounts.
	ListActivitiesByAccount(ctx context.Context, accountID string) ([]domain.ActivityRecord, error)
}
