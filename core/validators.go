package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
)

// Texts holds one message per locale ("en", "fr").
type Texts map[string]string

func (t Texts) For(locale string) string {
	if s, ok := t[locale]; ok {
		return s
	}
	return t["en"]
}

// catalog holds the messages every new translator is loaded with.
var catalog = map[string]Texts{}

// DefineTexts adds texts to the messages every new translator knows, under key, and returns key.
// It is meant for package level declarations; placeholders are written {0}, {1}...
func DefineTexts(key string, texts Texts) string {
	catalog[key] = texts
	return key
}

// T translates key with params, falling back to key itself when the translator does not know it.
func T(translator ut.Translator, key string, params ...string) string {
	s, err := translator.T(key, params...)
	if err != nil {
		return key
	}
	return s
}

var (
	// custom validation tags & texts
	notBlankTag   = "notblank"
	notBlankTexts = Texts{"en": "this field cannot be blank", "fr": "ce champ ne peut pas être vide"}

	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderTexts = Texts{
		"en": "only alphanumeric characters and underscores are allowed",
		"fr": "seuls les caractères alphanumériques et les tirets bas sont autorisés",
	}
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredTexts   = Texts{"en": "this field is required", "fr": "ce champ est obligatoire"}
)

// NewTranslator returns the translator for lang, falling back to french.
func NewTranslator(lang string) ut.Translator {
	_en := en.New()
	_fr := fr.New()
	uni := ut.New(_fr, _fr, _en)
	translator, found := uni.GetTranslator(strings.ToLower(lang))
	if !found {
		translator, _ = uni.GetTranslator("fr")
	}
	for key, texts := range catalog {
		_ = translator.Add(key, texts.For(translator.Locale()), false)
	}
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	if translator.Locale() == "en" {
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	} else {
		_ = fr_translations.RegisterDefaultTranslations(validate, translator)
	}

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankTexts)

	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderTexts)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredTexts, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredTexts, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag string, texts Texts, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	text := texts.For(translator.Locale())
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateValidation turns validator.ValidationErrors into a ValidationError with translated fields.
// Any other error is returned untouched.
func TranslateValidation(err error, translator ut.Translator) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
	}
	return NewValidationError(nil, flds...)
}

// Custom Global Validators

// notBlankValidation rejects strings made of whitespace only.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// Validator bundles the validator engine with the translator of its messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a ready to use Validator for lang.
func NewValidator(lang string) *Validator {
	v := &Validator{validate: validator.New(), translator: NewTranslator(lang)}
	InitValidators(v.validate, v.translator)
	return v
}

func (v *Validator) Engine() *validator.Validate { return v.validate }
func (v *Validator) Translator() ut.Translator   { return v.translator }
func (v *Validator) Locale() string              { return v.translator.Locale() }

// T translates a key declared with DefineTexts.
func (v *Validator) T(key string, params ...string) string { return T(v.translator, key, params...) }

// Register adds a custom validation tag with its messages.
func (v *Validator) Register(tag string, fn validator.Func, texts Texts) {
	_ = v.validate.RegisterValidation(tag, fn)
	RegisterCustomTranslation(v.validate, v.translator, tag, texts)
}

// Struct validates s and returns a *ValidationError with translated messages on failure.
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return TranslateValidation(err, v.translator)
	}
	return nil
}
