// Package contact validates and cleans contact form submissions before they
// reach the notifier.
package contact

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxSubjectLength = 200
	MaxMessageLength = 2000
	MinMessageLength = 10

	minMessageError = "Le message doit contenir au moins 10 caractères"
)

// Input is the raw, untrusted form payload.
type Input struct {
	Name    string `json:"name" form:"name" validate:"required,max=100,personname"`
	Email   string `json:"email" form:"email" validate:"required,max=254,email"`
	Subject string `json:"subject" form:"subject" validate:"omitempty,max=200"`
	Message string `json:"message" form:"message" validate:"required,max=2000,mintrim=10"`
	// Captcha is the hCaptcha widget token, only checked when captcha is enabled.
	Captcha string `json:"h-captcha-response" form:"h-captcha-response" validate:"-"`
}

var (
	validate *validator.Validate

	personNamePattern = regexp.MustCompile(`^[\p{L}\p{M}\s\-'’.]+$`)
	hasLetter         = regexp.MustCompile(`\p{L}`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("personname", validatePersonName)
	_ = validate.RegisterValidation("mintrim", validateMinTrimmed)
}

func validatePersonName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return personNamePattern.MatchString(name) && hasLetter.MatchString(name)
}

func validateMinTrimmed(fl validator.FieldLevel) bool {
	min, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= min
}

// Validate returns the list of user facing errors for in. An empty list means
// the input is valid.
func Validate(in Input) []string {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{"Données du formulaire invalides"}
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, message(fe))
	}
	return messages
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		switch fe.Tag() {
		case "required":
			return "Le nom est requis"
		case "max":
			return "Le nom ne doit pas dépasser 100 caractères"
		default:
			return "Le nom contient des caractères non autorisés"
		}
	case "Email":
		switch fe.Tag() {
		case "required":
			return "L'email est requis"
		case "max":
			return "L'email ne doit pas dépasser 254 caractères"
		default:
			return "Email invalide"
		}
	case "Subject":
		return "Le sujet ne doit pas dépasser 200 caractères"
	case "Message":
		switch fe.Tag() {
		case "required":
			return "Le message est requis"
		case "max":
			return "Le message ne doit pas dépasser 2000 caractères"
		default:
			return minMessageError
		}
	}
	return fe.Field() + " invalide"
}
