package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/genzugar/backend/core"
	appfs "github.com/genzugar/backend/fs"
)

var (
	genderTag  = "gender"
	genderText = "gender must be one of male, female or other"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords []string
)

func init() {
	loadCommonPasswords()

	// register validators
	core.RegisterRule(genderTag, genderValidation, genderText)

	core.Validate.RegisterStructValidation(userStructValidation, NewUser{}, ResetUserPassword{})
	core.RegisterMessage(pwdMinLenTag, pwdMinLenText)
	core.RegisterMessage(pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterMessage(pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterMessage(pwdAttrSimTag, pwdAttrSimText)
	core.RegisterMessage(pwdNoCommonTag, pwdNoCommonText)
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open(appfs.CommonPasswords)
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		return
	}
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords = append(commonPasswords, pwd)
		}
	}
	sort.Strings(commonPasswords)
}

// Custom Validators

func genderValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// userStructValidation does struct level validation on NewUser and ResetUserPassword structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(usr.Password, usr.FullName, usr.Email, sl)
	case ResetUserPassword:
		validatePassword(usr.Password, "", "", sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 6
// - no whitespace
// - no all numeric
// - no user attrs similarity
// - no common password
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	if pwd == "" {
		return // reported by `required`
	}
	if tag := passwordPolicyViolation(pwd, name, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// passwordPolicyViolation returns the tag of the first rule `pwd` breaks, or "".
func passwordPolicyViolation(pwd, name, email string) string {
	var digitCount int

	// - minLen: 6
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range pwd {
		// - no whitespace
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	// - no user attrs similarity
	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		pass, usrAttr = strings.ToLower(pass), strings.ToLower(usrAttr)
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	emailLocal := email
	if at := strings.Index(email, "@"); at > 0 {
		emailLocal = email[:at]
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, emailLocal) >= pwdMaxSim {
		return pwdAttrSimTag
	}

	// - no common passwords
	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdNoCommonTag
	}
	return ""
}

// CheckPasswordPolicy validates a password outside of a request payload (e.g. from the admin CLI).
func CheckPasswordPolicy(pwd, name, email string) error {
	if tag := passwordPolicyViolation(pwd, name, email); tag != "" {
		msg, _ := core.Translator.T(tag, "password")
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: msg})
	}
	return nil
}
