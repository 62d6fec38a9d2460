package authsdk

import (
	"errors"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxNameLength     = 100
	MaxEmailLength    = 254
)

var (
	reDigit = regexp.MustCompile(`[0-9]`)
	reLower = regexp.MustCompile(`[a-z]`)
	reUpper = regexp.MustCompile(`[A-Z]`)

	// EmailFormat checks syntax only; it never resolves the domain.
	EmailFormat = validation.NewStringRule(govalidator.IsEmail, "must be a valid email address")

	roles = []string{"Admin", "Manager", "User"}
)

// EmailRules validate an email address.
func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, MaxEmailLength),
		EmailFormat,
	}
}

// PasswordRules enforce the password policy: at least six characters with a
// digit, a lower-case and an upper-case letter.
func PasswordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLength, MaxPasswordLength),
		validation.Match(reDigit).Error("must contain a digit"),
		validation.Match(reLower).Error("must contain a lower-case letter"),
		validation.Match(reUpper).Error("must contain an upper-case letter"),
	}
}

// NameRules validate a display name.
func NameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, MaxNameLength),
	}
}

// RoleRule accepts a known role name, case-insensitively. Empty values pass.
var RoleRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(s), r) {
			return nil
		}
	}
	return errors.New("must be one of Admin, Manager, User")
})

// FieldErrors flattens ozzo validation errors into field -> message. It
// returns nil for nil or non-validation errors.
func FieldErrors(err error) map[string]string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}

	out := make(map[string]string, len(errs))
	for field, e := range errs {
		if e != nil {
			out[field] = e.Error()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks the registration fields.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (r RegisterRequest) Validate() map[string]string {
	return FieldErrors(validation.ValidateStruct(&r,
		validation.Field(&r.Email, EmailRules()...),
		validation.Field(&r.Password, PasswordRules()...),
		validation.Field(&r.Name, NameRules()...),
		validation.Field(&r.Role, RoleRule),
	))
}

// Validate checks that both credentials are present. The password policy is
// not applied; a wrong password is reported by the server.
func (r LoginRequest) Validate() map[string]string {
	return FieldErrors(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

func (r VerifyEmailRequest) Validate() map[string]string {
	return FieldErrors(validation.ValidateStruct(&r,
		validation.Field(&r.Email, EmailRules()...),
		validation.Field(&r.Token, validation.Required),
	))
}

// Validate checks the fields that are present. Blank values are ignored.
func (r UpdateUserRequest) Validate() map[string]string {
	var name, email string
	if r.Name != nil {
		name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		email = strings.TrimSpace(*r.Email)
	}

	return FieldErrors(validation.Errors{
		"name":  validation.Validate(name, validation.Length(1, MaxNameLength)),
		"email": validation.Validate(email, validation.Length(3, MaxEmailLength), EmailFormat),
	}.Filter())
}

func (r AssignRoleRequest) Validate() map[string]string {
	return FieldErrors(validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, RoleRule),
	))
}

func (r SetPermissionRequest) Validate() map[string]string {
	return FieldErrors(validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, RoleRule),
		validation.Field(&r.Module, validation.Required, validation.Length(1, MaxNameLength)),
	))
}
