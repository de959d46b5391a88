package booking

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinNameLength = 2
	MaxNameLength = 100
	MinAge        = 1
	MaxAge        = 120
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// Field error messages.
const (
	MsgNameRequired   = "Patient name is required"
	MsgNameTooShort   = "Name is too short (minimum 2 characters)"
	MsgNameTooLong    = "Name is too long (maximum 100 characters)"
	MsgAgeRequired    = "Age is required"
	MsgAgeNotNumber   = "Age must be a whole number"
	MsgAgeOutOfRange  = "Age must be between 1 and 120"
	MsgMobileRequired = "Mobile number is required"
	MsgMobileInvalid  = "Mobile number must be 10 digits starting with 6, 7, 8 or 9"
)

// AgeInput is the age as typed. It decodes from a JSON number or string.
type AgeInput string

func (a *AgeInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AgeInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = AgeInput(n.String())
	return nil
}

// PatientDraft is the patient identity being typed into the first step.
type PatientDraft struct {
	Name   string   `json:"name"`
	Age    AgeInput `json:"age"`
	Mobile string   `json:"mobile"`
}

// PatientErrors has one slot per known field; empty means valid.
type PatientErrors struct {
	Name   string `json:"name,omitempty"`
	Age    string `json:"age,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

func (e PatientErrors) Empty() bool {
	return e.Name == "" && e.Age == "" && e.Mobile == ""
}

// NormalizeName trims and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func ValidateName(name string) string {
	n := utf8.RuneCountInString(NormalizeName(name))
	switch {
	case n == 0:
		return MsgNameRequired
	case n < MinNameLength:
		return MsgNameTooShort
	case n > MaxNameLength:
		return MsgNameTooLong
	}
	return ""
}

// ParseAge coerces typed age text into an integer.
func ParseAge(age AgeInput) (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(age)))
}

func ValidateAge(age AgeInput) string {
	if strings.TrimSpace(string(age)) == "" {
		return MsgAgeRequired
	}
	n, err := ParseAge(age)
	if err != nil {
		return MsgAgeNotNumber
	}
	if n < MinAge || n > MaxAge {
		return MsgAgeOutOfRange
	}
	return ""
}

func ValidateMobile(mobile string) string {
	m := strings.TrimSpace(mobile)
	if m == "" {
		return MsgMobileRequired
	}
	if !mobilePattern.MatchString(m) {
		return MsgMobileInvalid
	}
	return ""
}

func IsValidName(name string) bool     { return ValidateName(name) == "" }
func IsValidAge(age AgeInput) bool     { return ValidateAge(age) == "" }
func IsValidMobile(mobile string) bool { return ValidateMobile(mobile) == "" }

// Validate checks every field independently.
func (d PatientDraft) Validate() PatientErrors {
	return PatientErrors{
		Name:   ValidateName(d.Name),
		Age:    ValidateAge(d.Age),
		Mobile: ValidateMobile(d.Mobile),
	}
}

// CanAdvanceFromPatient is the step-one gate.
func CanAdvanceFromPatient(d PatientDraft) bool {
	return IsValidName(d.Name) && IsValidAge(d.Age) && IsValidMobile(d.Mobile)
}
