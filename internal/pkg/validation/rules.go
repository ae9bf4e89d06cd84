package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Username: 3-32 letters, digits, dots or underscores
	UsernamePattern = `^[a-zA-Z0-9_.]{3,32}$`

	// Class join code: 7 upper-case letters or digits
	ClassCodePattern = `^[A-Z0-9]{7}$`

	// Password min length
	PasswordMinLength = 8
	PasswordMaxLength = 72
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Username  *regexp.Regexp
	ClassCode *regexp.Regexp
}{
	Username:  regexp.MustCompile(UsernamePattern),
	ClassCode: regexp.MustCompile(ClassCodePattern),
}

// IsValidUsername reports whether s is an acceptable username
func IsValidUsername(s string) bool {
	return CompiledPatterns.Username.MatchString(s)
}

// IsValidPassword requires the minimum length, at least one letter and one digit
func IsValidPassword(s string) bool {
	if len(s) < PasswordMinLength || len(s) > PasswordMaxLength {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// IsValidClassCode reports whether s looks like a join code
func IsValidClassCode(s string) bool {
	return CompiledPatterns.ClassCode.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// Register adds the custom tags (username, password, classcode) to v
func Register(v *validator.Validate) error {
	rules := map[string]func(string) bool{
		"username":  IsValidUsername,
		"password":  IsValidPassword,
		"classcode": IsValidClassCode,
	}
	for tag, fn := range rules {
		check := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterWithGin registers the custom tags on gin's default validator
func RegisterWithGin() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return Register(v)
	}
	return nil
}
