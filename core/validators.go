package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const notBlankTag = "notblank"

// Translation is the message of a validation tag; {0} is replaced by the field name.
type Translation struct {
	Tag  string
	Text string
	// Override replaces a default translation of the validator.
	Override bool
}

var coreTranslations = []Translation{
	{Tag: notBlankTag, Text: "{0} cannot be blank"},
	{Tag: "required", Text: "{0} is required", Override: true},
	{Tag: "required_with", Text: "{0} is required", Override: true},
}

func NewTranslator() ut.Translator {
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator(locale.Locale())
	return translator
}

// InitValidators sets validate up with english messages, JSON field names and the notblank tag.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	RegisterTranslations(validate, translator, coreTranslations...)
}

// RegisterTranslations registers the messages of custom (or overridden) validation tags.
func RegisterTranslations(validate *validator.Validate, translator ut.Translator, translations ...Translation) {
	for _, tr := range translations {
		tr := tr
		_ = validate.RegisterTranslation(
			tr.Tag, translator,
			func(t ut.Translator) error { return t.Add(tr.Tag, tr.Text, tr.Override) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tr.Tag, fe.Field())
				return msg
			},
		)
	}
}

// TranslateValidationErrors renders validation errors as a list of field-level messages.
func TranslateValidationErrors(errs validator.ValidationErrors, translator ut.Translator) []string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fe.Translate(translator))
	}
	return msgs
}

// jsonFieldName names fields after their JSON key; `json:"-"` fields are left unnamed.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func notBlank(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	return ok && strings.TrimSpace(str) != ""
}
