package application

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-agrisense/internal/domain"
)

// NewValidator returns a validator with the advisory custom tags
// registered.
// NewValidator returns an error if any registration fails.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterAdvisorValidators(v); err != nil {
		return nil, err
	}
	return v, nil
}

// RegisterAdvisorValidators registers the custom validation functions used
// by configuration, seed files and operation inputs.
// RegisterAdvisorValidators adds vocabkind, listenaddr and term validators
// that can be referenced in struct tags.
// RegisterAdvisorValidators returns an error if any validator registration
// fails.
func RegisterAdvisorValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("vocabkind", validateVocabKind); err != nil {
		return fmt.Errorf("failed to register vocabkind validator: %w", err)
	}

	if err := v.RegisterValidation("listenaddr", validateListenAddr); err != nil {
		return fmt.Errorf("failed to register listenaddr validator: %w", err)
	}

	if err := v.RegisterValidation("term", validateTerm); err != nil {
		return fmt.Errorf("failed to register term validator: %w", err)
	}

	return nil
}

// validateVocabKind accepts the names of the known vocabularies.
func validateVocabKind(fl validator.FieldLevel) bool {
	return domain.VocabularyKind(fl.Field().String()).Valid()
}

// validateListenAddr accepts host:port pairs where the host may be empty
// and the port is a number in [0,65535].
func validateListenAddr(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	if addr == "" {
		return true
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// validateTerm accepts strings that NormalizeTerm would accept.
func validateTerm(fl validator.FieldLevel) bool {
	_, err := NormalizeTerm(fl.Field().String())
	return err == nil
}

// validateStruct runs struct-tag validation on in and converts failures
// into a domain.ValidationError for entity that unwraps to cause.
func validateStruct(v *validator.Validate, entity string, in any, cause *domain.CodedError) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", entity, err)
	}

	verr := domain.NewValidationError(entity, cause)
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return verr
}

// describeFieldError renders a validator field error as
// "<field> failed <tag>[=<param>]".
func describeFieldError(fe validator.FieldError) string {
	var b strings.Builder
	b.WriteString(fe.Namespace())
	b.WriteString(" failed ")
	b.WriteString(fe.Tag())
	if p := fe.Param(); p != "" {
		b.WriteString("=")
		b.WriteString(p)
	}
	return b.String()
}
