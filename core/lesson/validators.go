package lesson

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

var (
	difficultyTag  = "difficulty"
	difficultyText = fmt.Sprintf("difficulty must be one of: %s", strings.Join(Difficulties, ", "))
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(difficultyTag, difficultyValidation)
	core.RegisterCustomTranslation(validate, translator, difficultyTag, difficultyText)
}

func difficultyValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, d := range Difficulties {
		if d == val {
			return true
		}
	}
	return false
}
