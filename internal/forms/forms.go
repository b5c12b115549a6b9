// Package forms checks user input before it is sent to the store.
//
// Rules are declared as validate tags on the request types in [models] and checked with
// go-playground/validator. Each form reports only its first failing field, in the order the field
// appears on screen, with the wording the store's web client uses.
package forms

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/go-playground/validator/v10"
)

// ExpiryLayout is the expected card expiry format.
const ExpiryLayout = "2006-01-02"

var (
	nameWord      = regexp.MustCompile(`^[A-Z][a-z]*$`)
	emailShape    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	emailSuffix   = regexp.MustCompile(`\.(com|org|in)$`)
	usernameShape = regexp.MustCompile(`^[a-z0-9_]+$`)
	holderShape   = regexp.MustCompile(`^[A-Za-z\s]+$`)
	cvvShape      = regexp.MustCompile(`^\d{3}$`)
)

const passwordSpecials = "@$!%*?&"

type rule struct {
	field   string
	message string
}

var cardRules = []rule{
	{"CardNumber", "Card number must be 16 digits"},
	{"CardHolderName", "Name should contain only alphabets"},
	{"ExpiryDate", "Date should be a future date"},
	{"CVV", "CVV should be 3 digits"},
	{"CardType", "Card type should be Credit Card or Debit Card"},
}

var registrationRules = []rule{
	{"Name", "Name must contain only letters, each word starting with capital letter"},
	{"Email", "Invalid email format (must end with .com, .org, or .in)"},
	{"Username", "Username must contain only lowercase letters, digits, and special characters"},
	{"Password", "Password must be 8-16 characters with at least one lowercase, uppercase, digit, and special character"},
	{"ConfirmPassword", "Passwords do not match"},
}

// Validator checks forms. The zero value is not usable; call [New].
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a [Validator].
type Option func(*Validator)

// WithNow replaces the clock used for expiry checks.
func WithNow(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New creates a [Validator] with the store's custom rules registered.
func New(opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.register("fullname", FullName)
	v.register("storeemail", StoreEmail)
	v.register("username", Username)
	v.register("password", Password)
	v.register("holder", holderShape.MatchString)
	v.register("futuredate", v.futureDate)
	return v
}

func (v *Validator) register(tag string, fn func(string) bool) {
	// Registration only fails for an empty tag or nil func.
	_ = v.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
}

func (v *Validator) futureDate(s string) bool {
	return FutureDate(s, v.now())
}

// Card checks a new card form.
func (v *Validator) Card(req models.PaymentRequest) error {
	return v.first(req, cardRules)
}

// Registration checks a registration form, including the password confirmation.
func (v *Validator) Registration(req models.RegisterRequest) error {
	return v.first(req, registrationRules)
}

// NewPassword checks that a new password was typed the same way twice.
func (v *Validator) NewPassword(password, confirm string) error {
	if password != confirm {
		return shared.NewValidationError("ConfirmPassword", "New password and confirm password do not match")
	}
	return nil
}

func (v *Validator) first(form any, rules []rule) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.StructField()] = true
	}
	for _, r := range rules {
		if failed[r.field] {
			return shared.NewValidationError(r.field, r.message)
		}
	}
	return shared.NewValidationError(verrs[0].StructField(), verrs[0].Error())
}

// FullName reports whether every word of s starts with a capital letter followed by lowercase letters.
func FullName(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !nameWord.MatchString(w) {
			return false
		}
	}
	return true
}

// StoreEmail reports whether s looks like an address on a .com, .org, or .in domain.
func StoreEmail(s string) bool {
	return emailShape.MatchString(s) && emailSuffix.MatchString(s)
}

// Username reports whether s uses only lowercase letters, digits, and underscores.
func Username(s string) bool {
	return usernameShape.MatchString(s)
}

// Password reports whether s is 8 to 16 characters drawn from letters, digits, and @$!%*?&, with at
// least one of each class.
func Password(s string) bool {
	if len(s) < 8 || len(s) > 16 {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// FutureDate reports whether s parses as a date strictly after midnight of the day containing now.
func FutureDate(s string, now time.Time) bool {
	date, err := time.ParseInLocation(ExpiryLayout, s, now.Location())
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return date.After(today)
}

// CVV reports whether s is exactly three digits.
func CVV(s string) bool {
	return cvvShape.MatchString(s)
}
