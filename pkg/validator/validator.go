package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/questx-lab/authserver/config"
)

const specialCharacters = "-+_!@#$%^&*.,?"

// Error describes why an input was rejected. The message is safe to show to
// the end user.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// Email accepts a single bare address, for example "a@b.c". Display names
// are rejected.
func Email(input string) error {
	if strings.TrimSpace(input) == "" {
		return newError("The email address is empty.")
	}

	addr, err := mail.ParseAddress(input)
	if err != nil || addr.Address != input {
		return newError("The email address is invalid.")
	}

	return nil
}

type PasswordPolicy struct {
	MinLength          int
	RequireUppercase   bool
	RequireDigit       bool
	RequireNonAlphaNum bool
}

func NewPasswordPolicy(cfg config.PasswordConfigs) PasswordPolicy {
	return PasswordPolicy{
		MinLength:          cfg.MinLength,
		RequireUppercase:   cfg.RequireUppercase,
		RequireDigit:       cfg.RequireDigit,
		RequireNonAlphaNum: cfg.RequireNonAlphaNum,
	}
}

func (p PasswordPolicy) Validate(input string) error {
	if strings.TrimSpace(input) == "" {
		return newError("The password input is empty.")
	}

	if p.RequireUppercase && !strings.ContainsFunc(input, unicode.IsUpper) {
		return newError("The password needs to have at least 1 capital letter.")
	}

	if p.RequireDigit && !strings.ContainsFunc(input, unicode.IsDigit) {
		return newError("The password needs to have at least 1 digit.")
	}

	if p.RequireNonAlphaNum && !strings.ContainsAny(input, specialCharacters) {
		return newError("The password needs to have at least 1 special character.")
	}

	if n := len([]rune(input)); n < p.MinLength {
		unit := "characters"
		if p.MinLength == 1 {
			unit = "character"
		}
		return newError("The password needs to consist of at least %d %s.", p.MinLength, unit)
	}

	return nil
}
