package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// Validate checks the `validate` struct tags of every input payload.
	Validate *validator.Validate
	// Translator turns validation errors into the messages sent back to clients.
	Translator ut.Translator
)

const requiredText = "this field is required"

func init() {
	Validate = validator.New()
	Translator, _ = ut.New(en.New()).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// errors are keyed by the JSON name of the field
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "" {
			tag = fld.Tag.Get("form")
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterRule("notblank", notBlank, "this field cannot be blank")
	for _, tag := range []string{"required", "required_with", "required_without"} {
		registerMessage(tag, requiredText, true)
	}
}

// RegisterRule adds a field validation tag and the message reported when it fails.
func RegisterRule(tag string, fn validator.Func, text string) {
	if err := Validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
	registerMessage(tag, text, false)
}

// RegisterMessage sets the message of a tag reported by a struct level validation.
func RegisterMessage(tag, text string) {
	registerMessage(tag, text, false)
}

func registerMessage(tag, text string, override bool) {
	_ = Validate.RegisterTranslation(tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(fe.Tag(), fe.Field())
			return msg
		},
	)
}

// notBlank rejects strings made only of whitespace. nil pointers pass: pair it with `required` if needed.
func notBlank(fl validator.FieldLevel) bool {
	fld := fl.Field()
	if fld.Kind() == reflect.Ptr {
		if fld.IsNil() {
			return true
		}
		fld = fld.Elem()
	}
	return fld.Kind() != reflect.String || strings.TrimSpace(fld.String()) != ""
}
