package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
)

// ErrInvalidField is wrapped by every FieldError.
var ErrInvalidField = errors.New("invalid value")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			return name
		})
		_ = validate.RegisterValidation("preset", func(fl validator.FieldLevel) bool {
			_, err := extension.Preset(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("archivekind", func(fl validator.FieldLevel) bool {
			_, ok := archive.Kinds[strings.ToLower(fl.Field().String())]
			return ok
		})
		_ = validate.RegisterValidation("cleanpath", func(fl validator.FieldLevel) bool {
			return validPath(fl.Field().String())
		})
	})
	return validate
}

// Validate checks cfg and returns one error per offending field, or nil.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}

// validPath rejects NUL bytes and paths that clean to nothing.
func validPath(p string) bool {
	if strings.ContainsRune(p, '\x00') {
		return false
	}
	cleaned := filepath.Clean(p)
	return cleaned != "" && cleaned != "."
}

// FieldError describes one field that failed validation.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value any
}

func (e *FieldError) Error() string {
	msg := e.Field + ": " + ErrInvalidField.Error()
	switch e.Tag {
	case "oneof":
		msg += " (must be one of: " + strings.ReplaceAll(e.Param, " ", ", ") + ")"
	case "preset":
		msg += " (valid presets: " + strings.Join(extension.PresetNames(), ", ") + ")"
	case "archivekind":
		msg += " (valid types: " + strings.Join(archive.KindNames(), ", ") + ")"
	case "eq", "gte", "lte":
		msg += " (" + e.Tag + " " + e.Param + ")"
	}
	return fmt.Sprintf("%s: %v", msg, e.Value)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}
