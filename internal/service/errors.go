package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrValidation         = errors.New("validation")              // 400
	ErrInvalidCredentials = errors.New("invalid credentials")     // 401
	ErrUnauthorized       = errors.New("unauthorized")            // 401
	ErrForbidden          = errors.New("forbidden")               // 403
	ErrNotFound           = errors.New("not found")               // 404
	ErrConflict           = errors.New("conflict")                // 409
	ErrBusinessRule       = errors.New("business rule violation") // 422
)

// FieldErrors maps request field names to messages. It matches ErrValidation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Is(target error) bool { return target == ErrValidation }

func (f FieldErrors) merge(other FieldErrors) FieldErrors {
	for k, v := range other {
		if _, ok := f[k]; !ok {
			f[k] = v
		}
	}
	return f
}

func (f FieldErrors) orNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// repoErr turns gorm.ErrRecordNotFound into ErrNotFound and wraps anything
// else with the operation name.
func repoErr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
