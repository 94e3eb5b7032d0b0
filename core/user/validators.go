package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/cblms/core"
)

const (
	roleTag = "role"

	// password policy
	pwdMinLen       = 8
	pwdMaxBytes     = 72 // bcrypt limit
	pwdMaxSim       = .7
	pwdMinLenTag    = "pwdminlen"
	pwdMaxLenTag    = "pwdmaxlen"
	pwdNoSpaceTag   = "pwdnospace"
	pwdNotAllNumTag = "pwdnotallnum"
	pwdAttrSimTag   = "pwdtoosim"
)

var translations = []core.Translation{
	{Tag: roleTag, Text: "{0} must be one of STUDENT, TEACHER or ADMIN"},
	{Tag: pwdMinLenTag, Text: fmt.Sprintf("password must contain at least %d characters", pwdMinLen)},
	{Tag: pwdMaxLenTag, Text: fmt.Sprintf("password must not exceed %d bytes", pwdMaxBytes)},
	{Tag: pwdNoSpaceTag, Text: "password must not contain whitespace"},
	{Tag: pwdNotAllNumTag, Text: "password cannot be entirely numeric"},
	{Tag: pwdAttrSimTag, Text: "password cannot be similar to user attributes"},
}

// InitValidators registers the role tag and the password policy on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{})
	core.RegisterTranslations(validate, translator, translations...)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(Role); ok {
		return role.IsValid()
	}
	return false
}

// userStructValidation does struct level validation on NewUser and UpdateUser structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.Name, usr.Email, sl)
		}
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.Name, usr.Email, sl)
		}
	}
}

// ValidatePassword applies the password policy outside of a struct, e.g. from the admin CLI.
func ValidatePassword(pwd, name, email string) error {
	tag := checkPassword(pwd, name, email)
	if tag == "" {
		return nil
	}
	var msg string
	for _, tr := range translations {
		if tr.Tag == tag {
			msg = tr.Text
		}
	}
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: "password", Error: msg})
}

func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	if tag := checkPassword(pwd, name, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// checkPassword returns the tag of the first broken rule of the password policy:
// - minLen: 8
// - at most 72 bytes
// - no whitespace
// - not all numeric
// - no user attrs similarity
func checkPassword(pwd, name, email string) string {
	var digitCount int

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	if len(pwd) > pwdMaxBytes {
		return pwdMaxLenTag
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		pass, usrAttr = strings.ToLower(pass), strings.ToLower(usrAttr)
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		return pwdAttrSimTag
	}
	return ""
}
