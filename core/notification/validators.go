package notification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

var (
	channelTag  = "channel"
	channelText = "must be one of: email, sms, in_app"

	severityTag  = "severity"
	severityText = "must be one of: info, success, warning, error"
)

// InitValidators registers the notification tags on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(channelTag, func(fl validator.FieldLevel) bool {
		return Channel(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, channelTag, channelText)

	_ = validate.RegisterValidation(severityTag, func(fl validator.FieldLevel) bool {
		return Severity(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, severityTag, severityText)
}
