package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"card-pricer/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidCard is wrapped by ValidateCard failures.
var ErrInvalidCard = errors.New("card is missing required fields")

// ValidateCard checks that the required card attributes are present.
func ValidateCard(q models.CardQuery) error {
	trimmed := models.CardQuery{
		Brand:   strings.TrimSpace(q.Brand),
		SetName: strings.TrimSpace(q.SetName),
		Year:    strings.TrimSpace(q.Year),
	}
	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		missing := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			missing = append(missing, fe.Field())
		}
		return fmt.Errorf("%w: %s", ErrInvalidCard, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidCard, err)
}
