package runtime

import (
	"chat-hub/errors"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxUsernameLength = 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("nodoublespace", func(fl validator.FieldLevel) bool {
		return !strings.Contains(fl.Field().String(), "  ")
	})
	return v
}

// validateUsername expects an already trimmed name.
// The private channel separator is refused so that two pairs never share a key.
func validateUsername(name string) error {
	// 0x7C is '|', which cannot be written literally inside a validator tag.
	err := validate.Var(name, fmt.Sprintf("required,max=%d,nodoublespace,excludesall=0x7C", MaxUsernameLength))
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", errors.ErrInvalidIdentity, err)
	}
	switch fieldErrs[0].Tag() {
	case "required":
		return fmt.Errorf("%w: username is required", errors.ErrInvalidIdentity)
	case "max":
		return fmt.Errorf("%w: username must be %d characters or less", errors.ErrInvalidIdentity, MaxUsernameLength)
	case "excludesall":
		return fmt.Errorf("%w: username cannot contain '|'", errors.ErrInvalidIdentity)
	default:
		return fmt.Errorf("%w: username cannot contain consecutive spaces", errors.ErrInvalidIdentity)
	}
}

func validateRoom(room string) error {
	if err := validate.Var(room, "required"); err != nil {
		return errors.ErrRoomRequired
	}
	return nil
}

func validateGroupName(name string) error {
	if err := validate.Var(name, "required"); err != nil {
		return errors.ErrInvalidGroupName
	}
	return nil
}
