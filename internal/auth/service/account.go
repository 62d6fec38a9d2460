package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/cryptox"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultMailTimeout     = 10 * time.Second
)

// Notifier delivers verification emails.
type Notifier interface {
	SendVerification(ctx context.Context, msg domain.VerificationEmail) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject, name, email, role string, now time.Time) (string, time.Time, error)
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (in RegisterInput) validate() error {
	return newValidationError(authsdk.FieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Email, authsdk.EmailRules()...),
		validation.Field(&in.Password, authsdk.PasswordRules()...),
		validation.Field(&in.Name, authsdk.NameRules()...),
	)))
}

// ProfileUpdate carries the fields to change. Nil or blank fields are left
// untouched.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

func (u ProfileUpdate) normalized() (name, email string) {
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		email = normalizeEmail(*u.Email)
	}
	return name, email
}

// AccountService owns the account lifecycle: registration, email
// verification, login, profile changes, role assignment and deletion.
type AccountService struct {
	Store    store.Store
	Hasher   *cryptox.PasswordHasher
	Tokens   TokenIssuer
	Notifier Notifier
	Activity *ActivityLog

	VerificationTTL time.Duration
	MailTimeout     time.Duration
	Now             func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Register creates an unverified account and sends its verification token.
// No session is issued until the email is verified.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (domain.AccountView, error) {
	log := slogx.FromContext(ctx)

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	// A taken email is reported whatever else is wrong with the request. The
	// unique index stays authoritative.
	if _, err := s.Store.Accounts().GetAccountByEmail(ctx, in.Email); err == nil {
		return domain.AccountView{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.AccountView{}, err
	}

	if err := in.validate(); err != nil {
		return domain.AccountView{}, err
	}

	roleName := domain.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		r, ok := domain.ParseRoleName(in.Role)
		if !ok {
			return domain.AccountView{}, ErrInvalidRole
		}
		roleName = r
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.AccountView{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.AccountView{}, err
	}

	now := s.now()
	acct := domain.Account{
		ID:           idx.NewAt(now).String(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	acct.SetVerification(cryptox.FingerprintToken(token), now.Add(s.verificationTTL()))

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		role, err := tx.Roles().EnsureRole(ctx, roleName)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", roleName, err)
		}
		acct.RoleID = role.ID

		if err := tx.Accounts().CreateAccount(ctx, acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateEmail) {
			log.Error("failed to create account", slog.Any("error", err))
		}
		return domain.AccountView{}, err
	}

	log.Info("account registered",
		slog.String("account_id", acct.ID),
		slog.String("role", string(roleName)),
	)

	s.sendVerification(ctx, acct, token)
	s.Activity.Append(ctx, acct.ID, domain.ActivityRegistered)

	return newAccountView(acct, roleName), nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	log := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same time as a real verification.
			_ = s.Hasher.Verify(password, s.dummy())
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, err
	}

	if err := s.Hasher.Verify(password, acct.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unusable",
				slog.String("account_id", acct.ID),
				slog.Any("error", err),
			)
		}
		return domain.Session{}, ErrInvalidCredentials
	}

	// Only reached with the right password, so the verification state is
	// disclosed to the owner alone.
	if !acct.EmailVerified {
		return domain.Session{}, ErrEmailNotVerified
	}

	role, err := resolveRole(ctx, s.Store, acct.RoleID)
	if err != nil {
		return domain.Session{}, err
	}

	sess, err := s.issueSession(acct, role)
	if err != nil {
		log.Error("failed to issue session", slog.Any("error", err))
		return domain.Session{}, err
	}

	s.Activity.Append(ctx, acct.ID, domain.ActivityLoggedIn)
	return sess, nil
}

// VerifyEmail consumes the verification token for email. Verification also
// counts as the first login and returns a session.
func (s *AccountService) VerifyEmail(ctx context.Context, email, token string) (domain.Session, error) {
	log := slogx.FromContext(ctx)
	email = normalizeEmail(email)
	token = strings.TrimSpace(token)
	now := s.now()

	var (
		acct domain.Account
		role domain.RoleName
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.Accounts().GetAccountByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		if a.EmailVerified {
			return ErrAlreadyVerified
		}
		if token == "" || !a.HasPendingVerification() ||
			!cryptox.FingerprintMatches(token, *a.VerificationTokenHash) ||
			now.After(*a.VerificationExpiresAt) {
			return ErrInvalidOrExpiredToken
		}

		a.ClearVerification()
		version, err := tx.Accounts().UpdateAccount(ctx, a)
		if err != nil {
			return err
		}
		a.Version = version

		r, err := resolveRole(ctx, tx, a.RoleID)
		if err != nil {
			return err
		}

		acct, role = a, r
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		// Someone else changed the account between our read and write.
		err = s.verifyConflict(ctx, email)
	}
	if err != nil {
		return domain.Session{}, err
	}

	log.Info("email verified", slog.String("account_id", acct.ID))

	sess, err := s.issueSession(acct, role)
	if err != nil {
		log.Error("failed to issue session", slog.Any("error", err))
		return domain.Session{}, err
	}

	s.Activity.Append(ctx, acct.ID, domain.ActivityEmailVerified)
	return sess, nil
}

// verifyConflict classifies a lost verification race.
func (s *AccountService) verifyConflict(ctx context.Context, email string) error {
	a, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrAccountNotFound
	case err != nil:
		return err
	case a.EmailVerified:
		return ErrAlreadyVerified
	default:
		// The token was replaced by a profile update.
		return ErrInvalidOrExpiredToken
	}
}

// UpdateProfile applies the supplied fields. A new email makes the account
// unverified and sends a fresh verification token.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (domain.AccountView, error) {
	log := slogx.FromContext(ctx)

	name, email := upd.normalized()
	err := newValidationError(authsdk.FieldErrors(validation.Errors{
		"name":  validation.Validate(name, validation.Length(1, authsdk.MaxNameLength)),
		"email": validation.Validate(email, validation.Length(3, authsdk.MaxEmailLength), authsdk.EmailFormat),
	}.Filter()))
	if err != nil {
		return domain.AccountView{}, err
	}

	var (
		token   string
		changed bool
	)
	acct, err := s.mutateAccount(ctx, id, func(tx store.Tx, a *domain.Account) (bool, error) {
		token, changed = "", false

		if name != "" && name != a.Name {
			a.Name = name
			changed = true
		}

		if email != "" && !strings.EqualFold(email, a.Email) {
			if _, err := tx.Accounts().GetAccountByEmail(ctx, email); err == nil {
				return false, ErrDuplicateEmail
			} else if !errors.Is(err, store.ErrNotFound) {
				return false, err
			}

			t, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return false, err
			}
			now := s.now()
			a.Email = email
			a.SetVerification(cryptox.FingerprintToken(t), now.Add(s.verificationTTL()))
			token = t
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return domain.AccountView{}, err
	}

	role, err := resolveRole(ctx, s.Store, acct.RoleID)
	if err != nil {
		return domain.AccountView{}, err
	}
	if !changed {
		return newAccountView(acct, role), nil
	}

	log.Info("account profile updated",
		slog.String("account_id", acct.ID),
		slog.Bool("email_changed", token != ""),
	)

	if token != "" {
		s.sendVerification(ctx, acct, token)
	}
	s.Activity.Append(ctx, acct.ID, domain.ActivityProfileUpdated)

	return newAccountView(acct, role), nil
}

// AssignRole replaces the account's role.
func (s *AccountService) AssignRole(ctx context.Context, id, role string) (domain.AccountView, error) {
	roleName, ok := domain.ParseRoleName(role)
	if !ok {
		return domain.AccountView{}, ErrInvalidRole
	}

	var changed bool
	acct, err := s.mutateAccount(ctx, id, func(tx store.Tx, a *domain.Account) (bool, error) {
		r, err := tx.Roles().EnsureRole(ctx, roleName)
		if err != nil {
			return false, err
		}
		changed = a.RoleID != r.ID
		a.RoleID = r.ID
		return changed, nil
	})
	if err != nil {
		return domain.AccountView{}, err
	}

	if changed {
		slogx.FromContext(ctx).Info("account role changed",
			slog.String("account_id", acct.ID),
			slog.String("role", string(roleName)),
		)
		s.Activity.Append(ctx, acct.ID, domain.ActivityRoleChanged)
	}
	return newAccountView(acct, roleName), nil
}

// mutateAccount loads the account, lets fn change it and writes it back in
// one transaction. An optimistic-concurrency conflict is retried once after
// checking the account still exists; a second conflict is returned as is.
func (s *AccountService) mutateAccount(
	ctx context.Context,
	id string,
	fn func(tx store.Tx, a *domain.Account) (bool, error),
) (domain.Account, error) {
	attempt := func() (domain.Account, error) {
		var out domain.Account
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			a, err := tx.Accounts().GetAccountByID(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrAccountNotFound
				}
				return err
			}

			changed, err := fn(tx, &a)
			if err != nil {
				return err
			}
			if changed {
				version, err := tx.Accounts().UpdateAccount(ctx, a)
				if err != nil {
					if errors.Is(err, store.ErrAlreadyExists) {
						return ErrDuplicateEmail
					}
					return err
				}
				a.Version = version
			}

			out = a
			return nil
		})
		return out, err
	}

	acct, err := attempt()
	if !errors.Is(err, store.ErrConflict) {
		return acct, err
	}

	slogx.FromContext(ctx).Warn("account update conflicted, retrying", slog.String("account_id", id))
	if _, err := s.Store.Accounts().GetAccountByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}

	acct, err = attempt()
	if errors.Is(err, store.ErrConflict) {
		return domain.Account{}, fmt.Errorf("update account %s: %w", id, err)
	}
	return acct, err
}

// DeleteAccount hard-deletes the account. Its activity trail is kept and
// gains a final entry.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	err := s.Store.Accounts().DeleteAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("account deleted", slog.String("account_id", id))
	s.Activity.Append(ctx, id, domain.ActivityDeleted)
	return nil
}

// GetAccount returns the public view of one account.
func (s *AccountService) GetAccount(ctx context.Context, id string) (domain.AccountView, error) {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccountView{}, ErrAccountNotFound
		}
		return domain.AccountView{}, err
	}

	role, err := resolveRole(ctx, s.Store, acct.RoleID)
	if err != nil {
		return domain.AccountView{}, err
	}
	return newAccountView(acct, role), nil
}

// ListAccounts returns the public view of every account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.AccountView, error) {
	accounts, err := s.Store.Accounts().ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := s.Store.Roles().ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]domain.RoleName, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	views := make([]domain.AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a, names[a.RoleID]))
	}
	return views, nil
}

// ListActivity returns the audit trail of an account, which may since have
// been deleted.
func (s *AccountService) ListActivity(ctx context.Context, id string) ([]domain.ActivityRecord, error) {
	return s.Activity.List(ctx, id)
}

func (s *AccountService) issueSession(a domain.Account, role domain.RoleName) (domain.Session, error) {
	token, exp, err := s.Tokens.Issue(a.ID, a.Name, a.Email, string(role), s.now())
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		Token:     token,
		ExpiresAt: exp,
		Account:   newAccountView(a, role),
	}, nil
}

// sendVerification dispatches the verification email. Failures are logged
// only; the account change is already committed.
func (s *AccountService) sendVerification(ctx context.Context, a domain.Account, token string) {
	timeout := s.MailTimeout
	if timeout <= 0 {
		timeout = DefaultMailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.Notifier.SendVerification(ctx, domain.VerificationEmail{
		Email: a.Email,
		Name:  a.Name,
		Token: token,
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to send verification email",
			slog.String("account_id", a.ID),
			slog.Any("error", err),
		)
	}
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		pw, err := cryptox.GeneratePassword()
		if err != nil {
			pw = "dummy-password"
		}
		s.dummyHash, _ = s.Hasher.Hash(pw)
	})
	return s.dummyHash
}

func (s *AccountService) verificationTTL() time.Duration {
	if s.VerificationTTL > 0 {
		return s.VerificationTTL
	}
	return DefaultVerificationTTL
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// roleReader is satisfied by store.Store and store.Tx.
type roleReader interface {
	Roles() store.Roles
}

// resolveRole returns the role name for roleID, or "" when unassigned.
func resolveRole(ctx context.Context, st roleReader, roleID string) (domain.RoleName, error) {
	if roleID == "" {
		return "", nil
	}
	r, err := st.Roles().GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return r.Name, nil
}

func newAccountView(a domain.Account, role domain.RoleName) domain.AccountView {
	return domain.AccountView{
		ID:            a.ID,
		Email:         a.Email,
		Name:          a.Name,
		EmailVerified: a.EmailVerified,
		Role:          role,
		CreatedAt:     a.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
