package billing

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

var (
	planTag  = "plan"
	planText = fmt.Sprintf("plan must be one of: %s", strings.Join([]string{PlanMonthly, PlanYearly}, ", "))
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(planTag, planValidation)
	core.RegisterCustomTranslation(validate, translator, planTag, planText)
}

func planValidation(fl validator.FieldLevel) bool {
	_, ok := planDurations[fl.Field().String()]
	return ok
}
