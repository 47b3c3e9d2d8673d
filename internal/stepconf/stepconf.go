// Package stepconf fills env-tagged structs from an env.Repository.
//
// Tag format: `env:"KEY[,constraint]"`. Supported constraints:
//
//	required       the value must not be empty
//	opt[a,b,'c,d'] the value must be one of the options
//	range[1..100]  numeric value within bounds; "[" and "]" facing the number mean inclusive,
//	               facing away mean exclusive, e.g. range]0..1[
//
// An empty value leaves the field untouched, so defaults can be set before parsing.
package stepconf

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// ErrNotStructPtr indicates a type is not a pointer to a struct.
var ErrNotStructPtr = errors.New("must be a pointer to a struct")

// ErrRequiredValue indicates that a required variable is not set.
var ErrRequiredValue = errors.New("required variable is not present")

// ErrInvalidOption indicates a value is not in the list of accepted options.
var ErrInvalidOption = errors.New("value is not in value options")

// InputParser ...
type InputParser interface {
	Parse(input interface{}) error
}

type defaultInputParser struct {
	envRepository env.Repository
}

// NewInputParser ...
func NewInputParser(envRepository env.Repository) InputParser {
	return defaultInputParser{
		envRepository: envRepository,
	}
}

// Parse ...
func (p defaultInputParser) Parse(input interface{}) error {
	return parse(input, p.envRepository)
}

func parse(conf interface{}, envRepository env.Repository) error {
	c := reflect.ValueOf(conf)
	if c.Kind() != reflect.Ptr {
		return ErrNotStructPtr
	}
	c = c.Elem()
	if c.Kind() != reflect.Struct {
		return ErrNotStructPtr
	}
	t := c.Type()

	var errs []error
	for i := 0; i < c.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}
		key, constraint := parseTag(tag)
		value := envRepository.Get(key)

		if err := setField(c.Field(i), value, constraint); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func parseTag(tag string) (string, string) {
	key, constraint, _ := strings.Cut(tag, ",")
	return key, constraint
}

func setField(field reflect.Value, value, constraint string) error {
	if value == "" {
		if constraint == "required" {
			return ErrRequiredValue
		}
		return nil
	}

	if err := validateConstraint(value, constraint); err != nil {
		return err
	}

	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := setValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}
	return setValue(field, value)
}

func setValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("can't convert %q to int", value)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("can't convert %q to float", value)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		field.Set(reflect.ValueOf(strings.Split(value, "|")))
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("can't convert %q to bool", value)
	}
	return b, nil
}

func validateConstraint(value, constraint string) error {
	switch {
	case constraint == "" || constraint == "required":
		return nil
	case strings.HasPrefix(constraint, "opt[") && strings.HasSuffix(constraint, "]"):
		for _, option := range parseOptionList(constraint[len("opt[") : len(constraint)-1]) {
			if option == value {
				return nil
			}
		}
		return ErrInvalidOption
	case strings.HasPrefix(constraint, "range"):
		return validateRange(value, strings.TrimPrefix(constraint, "range"))
	default:
		return fmt.Errorf("unknown constraint: %s", constraint)
	}
}

// parseOptionList splits on commas outside of single quotes.
func parseOptionList(list string) []string {
	var options []string
	var current strings.Builder
	quoted := false
	for _, r := range list {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ',' && !quoted:
			options = append(options, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(options, current.String())
}

func validateRange(value, bounds string) error {
	if len(bounds) < 2 {
		return fmt.Errorf("invalid range constraint: %s", bounds)
	}
	lower, upper := bounds[0], bounds[len(bounds)-1]
	minStr, maxStr, ok := strings.Cut(bounds[1:len(bounds)-1], "..")
	if !ok || (lower != '[' && lower != ']') || (upper != '[' && upper != ']') {
		return fmt.Errorf("invalid range constraint: %s", bounds)
	}

	minimum, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return fmt.Errorf("invalid range minimum: %s", minStr)
	}
	maximum, err := strconv.ParseFloat(maxStr, 64)
	if err != nil {
		return fmt.Errorf("invalid range maximum: %s", maxStr)
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("can't convert %q to number", value)
	}

	minInclusive, maxInclusive := lower == '[', upper == ']'
	if n < minimum || (n == minimum && !minInclusive) || n > maximum || (n == maximum && !maxInclusive) {
		return fmt.Errorf("value %s is out of range %s", value, bounds)
	}
	return nil
}

// Print logs the env-tagged fields of config.
func Print(config interface{}, logger log.Logger) {
	logger.Printf("%s", toString(config))
}

func toString(config interface{}) string {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}
	t := v.Type()

	var b strings.Builder
	b.WriteString("Configuration:\n")
	for i := 0; i < v.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}
		key, _ := parseTag(tag)
		fmt.Fprintf(&b, "- %s: %s\n", key, valueString(v.Field(i)))
	}
	return b.String()
}

func valueString(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	return fmt.Sprintf("%v", v.Interface())
}
