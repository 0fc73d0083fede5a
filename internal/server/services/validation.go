package services

import (
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/samber/oops"
)

const (
	minPasswordLen = 4
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72
	maxNameLen     = 100
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalid(field, msg string) error {
	return oops.Code(common.KindValidation).With("field", field).Errorf("%s", msg)
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "email is malformed")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return invalid("password", "password must be between 4 and 72 bytes")
	}
	return nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, field+" is required")
	}
	if len(value) > maxNameLen {
		return invalid(field, field+" is too long")
	}
	return nil
}
