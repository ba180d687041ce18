// Package attrtype defines the closed set of attribute kinds and the
// coercion/validation rules applied when a record value is written.
// Values are always persisted as text; Coerce returns the canonical text
// form for the attribute's kind or a structured error.
package attrtype

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/24ep/mdm-sub019/internal/apperr"
	"github.com/24ep/mdm-sub019/internal/model"
)

// Kind is one variant of the attribute type system.
type Kind string

const (
	Text        Kind = "TEXT"
	Textarea    Kind = "TEXTAREA"
	Number      Kind = "NUMBER"
	Boolean     Kind = "BOOLEAN"
	Date        Kind = "DATE"
	Email       Kind = "EMAIL"
	URL         Kind = "URL"
	Phone       Kind = "PHONE"
	Select      Kind = "SELECT"
	MultiSelect Kind = "MULTI_SELECT"
	User        Kind = "USER"
	MultiUser   Kind = "MULTI_USER"
	Attachment  Kind = "ATTACHMENT"
	Combo       Kind = "COMBO"
)

var kinds = map[Kind]bool{
	Text: true, Textarea: true, Number: true, Boolean: true, Date: true,
	Email: true, URL: true, Phone: true, Select: true, MultiSelect: true,
	User: true, MultiUser: true, Attachment: true, Combo: true,
}

// Valid reports whether k is a member of the closed kind set.
func Valid(k Kind) bool {
	return kinds[k]
}

// IsMulti reports whether the kind stores a JSON string array in its
// single value row.
func IsMulti(k Kind) bool {
	return k == MultiSelect || k == MultiUser || k == Attachment
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlRe   = regexp.MustCompile(`^https?://[^\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{4,24}$`)
)

// Coerce validates raw against the attribute's kind and returns the text
// form to store. USER / MULTI_USER ids and ATTACHMENT references are
// opaque here; resolving them belongs to the directory and storage
// collaborators.
func Coerce(attr *model.Attribute, raw string) (string, error) {
	switch Kind(attr.Type) {
	case Combo:
		return "", apperr.Immutable(attr.Code)

	case Text, Textarea, User:
		return raw, nil

	case Number:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return "", apperr.TypeError(attr.Code, "%q is not numeric", raw)
		}
		return raw, nil

	case Boolean:
		if raw != "true" && raw != "false" {
			return "", apperr.TypeError(attr.Code, "%q is not a boolean, expected \"true\" or \"false\"", raw)
		}
		return raw, nil

	case Date:
		if !parsableDate(raw) {
			return "", apperr.TypeError(attr.Code, "%q is not an ISO-8601 date", raw)
		}
		return raw, nil

	case Email:
		if !emailRe.MatchString(raw) {
			return "", apperr.TypeError(attr.Code, "%q is not a valid email address", raw)
		}
		return raw, nil

	case URL:
		if !urlRe.MatchString(raw) {
			return "", apperr.TypeError(attr.Code, "%q is not a valid URL", raw)
		}
		return raw, nil

	case Phone:
		if !phoneRe.MatchString(raw) {
			return "", apperr.TypeError(attr.Code, "%q is not a valid phone number", raw)
		}
		return raw, nil

	case Select:
		if !optionExists(attr.Options, raw) {
			return "", apperr.Validation(attr.Code, "unknown_option", "%q is not one of the attribute's options", raw)
		}
		return raw, nil

	case MultiSelect:
		values, err := DecodeMulti(raw)
		if err != nil {
			return "", apperr.TypeError(attr.Code, "multi-select value must be a JSON string array")
		}
		for _, v := range values {
			if !optionExists(attr.Options, v) {
				return "", apperr.Validation(attr.Code, "unknown_option", "%q is not one of the attribute's options", v)
			}
		}
		return EncodeMulti(values), nil

	case MultiUser, Attachment:
		values, err := DecodeMulti(raw)
		if err != nil {
			return "", apperr.TypeError(attr.Code, "value must be a JSON string array of references")
		}
		return EncodeMulti(values), nil
	}

	return "", apperr.TypeError(attr.Code, "unknown attribute type %q", attr.Type)
}

func parsableDate(raw string) bool {
	if _, err := time.Parse(time.RFC3339, raw); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02", raw)
	return err == nil
}

func optionExists(options []model.AttributeOption, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// EmptyValue reports whether a coerced value is empty for the
// attribute's kind. Multi-valued kinds encode an empty set as "[]",
// which counts as empty for the required check.
func EmptyValue(attr *model.Attribute, stored string) bool {
	if IsMulti(Kind(attr.Type)) {
		values, _ := DecodeMulti(stored)
		return len(values) == 0
	}
	return stored == ""
}

// DecodeMulti parses the stored JSON string array of a multi-valued kind.
func DecodeMulti(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// EncodeMulti serializes values into the stored JSON string array form.
func EncodeMulti(values []string) string {
	if values == nil {
		values = []string{}
	}
	out, _ := json.Marshal(values)
	return string(out)
}
