package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bankcards/utils"

	"github.com/go-playground/validator/v10"
)

// newValidator создает валидатор с тегами домена:
// cardnumber (16 цифр, группы по четыре) и notpast (дата не раньше сегодняшней)
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return utils.IsValidCardNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		date, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !dateOnly(date).Before(dateOnly(now()))
	})
	return v
}

// validationError переводит ошибки валидатора в ErrValidation с описанием полей
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var errorMessages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
		case "min":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать минимум "+e.Param()+" символов")
		case "max":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать максимум "+e.Param()+" символов")
		case "email":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть корректным email")
		case "cardnumber":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать 16 цифр")
		case "notpast":
			errorMessages = append(errorMessages, "поле "+e.Field()+" не может быть в прошлом")
		default:
			errorMessages = append(errorMessages, "поле "+e.Field()+" не прошло проверку "+e.Tag())
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errorMessages, "; "))
}

// dateOnly отбрасывает время суток, оставляя календарную дату в UTC
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
