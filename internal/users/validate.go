package users

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

// Column limits of the users and addresses tables live in the struct tags
// of NewUser and NewAddress.
const (
	nameRule     = "required,max=50"
	passwordRule = "min=8"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateNewUser(in NewUser) error {
	return fieldError(validate.Struct(in))
}

func validateName(field, v string) error {
	return varError(field, validate.Var(strings.TrimSpace(v), nameRule))
}

func validatePassword(v string) error {
	if err := validate.Var(v, passwordRule); err != nil {
		return fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordLen)
	}
	return nil
}

func varError(field string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return describe(field, verrs[0])
	}
	return err
}

// fieldError reports the first failed rule using the wire name of the field,
// e.g. "addresses[0].postalCode".
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = lowerFirst(p)
	}
	return describe(strings.Join(parts, "."), fe)
}

func describe(field string, fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", auth.ErrInvalidInput, field)
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", auth.ErrInvalidInput, field, fe.Param())
	case "min":
		return fmt.Errorf("%w: %s must be at least %s characters", auth.ErrInvalidInput, field, fe.Param())
	default:
		return fmt.Errorf("%w: %s is invalid", auth.ErrInvalidInput, field)
	}
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func trimAddresses(in []NewAddress) []NewAddress {
	out := make([]NewAddress, len(in))
	for i, a := range in {
		out[i] = NewAddress{
			City:       strings.TrimSpace(a.City),
			Country:    strings.TrimSpace(a.Country),
			StreetName: strings.TrimSpace(a.StreetName),
			PostalCode: strings.TrimSpace(a.PostalCode),
			Type:       strings.TrimSpace(a.Type),
		}
	}
	return out
}
