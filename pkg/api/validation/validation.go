// Package validation checks a build configuration for errors before the
// build starts.
package validation

import (
	"fmt"
	"regexp"

	"github.com/docker/distribution/reference"

	"github.com/py2image/python-to-image/pkg/api"
)

// entryModuleRegexp matches a dotted python module path.
var entryModuleRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidateConfig returns a list of errors for the given config. An empty list
// means the config is valid.
func ValidateConfig(config *api.Config) []Error {
	allErrs := []Error{}
	if len(config.BaseImage) == 0 {
		allErrs = append(allErrs, NewRequiredError("baseImage"))
	} else if !validImageName(config.BaseImage) {
		allErrs = append(allErrs, NewInvalidError("baseImage", config.BaseImage))
	}
	if len(config.Source) == 0 && len(config.Tag) == 0 {
		allErrs = append(allErrs, NewRequiredError("source"))
	}
	if len(config.Tag) > 0 && !validImageName(config.Tag) {
		allErrs = append(allErrs, NewInvalidError("tag", config.Tag))
	}
	if len(config.EntryModule) > 0 && !entryModuleRegexp.MatchString(config.EntryModule) {
		allErrs = append(allErrs, NewInvalidError("entryModule", config.EntryModule))
	}
	if config.DockerConfig != nil && len(config.DockerConfig.Endpoint) == 0 {
		allErrs = append(allErrs, NewRequiredError("dockerConfig.endpoint"))
	}
	if len(config.ExcludeRegExp) > 0 {
		if _, err := regexp.Compile(config.ExcludeRegExp); err != nil {
			allErrs = append(allErrs, NewInvalidError("excludeRegExp", config.ExcludeRegExp))
		}
	}
	if len(config.Labels) > 0 {
		for k := range config.Labels {
			if len(k) == 0 {
				allErrs = append(allErrs, NewInvalidError("labels", k))
			}
		}
	}
	return allErrs
}

func validImageName(name string) bool {
	_, err := reference.ParseNormalizedNamed(name)
	return err == nil
}

// NewRequiredError returns a ValidationError for a missing required field.
func NewRequiredError(field string) Error {
	return Error{Type: ErrorTypeRequired, Field: field}
}

// NewInvalidError returns a ValidationError for an invalid field value.
func NewInvalidError(field string, value string) Error {
	return Error{Type: ErrorInvalidValue, Field: field, Value: value}
}

// ErrorType is a machine readable value providing more detail about why a
// field is invalid.
type ErrorType string

const (
	// ErrorTypeRequired is used to report required values that are not
	// provided (e.g. empty strings, null values, or empty arrays).
	ErrorTypeRequired ErrorType = "FieldValueRequired"

	// ErrorInvalidValue is used to report values that do not conform to the
	// expected schema.
	ErrorInvalidValue ErrorType = "InvalidValue"
)

// Error is an implementation of the 'error' interface, which represents a
// validation error.
type Error struct {
	Type  ErrorType
	Field string
	Value string
}

func (v Error) Error() string {
	switch v.Type {
	case ErrorTypeRequired:
		return fmt.Sprintf("Required value not specified: %q", v.Field)
	case ErrorInvalidValue:
		return fmt.Sprintf("Invalid value specified for %q: %q", v.Field, v.Value)
	}
	return fmt.Sprintf("%s: %s", v.Type, v.Field)
}
