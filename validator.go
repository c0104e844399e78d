package docweaver

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks the arguments of a directive before its renderer runs.
type Validator interface {
	// Validate returns nil if args are acceptable for the directive.
	Validate(directive string, args Args) error
}

// Signature declares the keyword arguments a directive accepts.
type Signature struct {
	Required []string
	Optional []string
}

// Validate implements the Validator interface. Missing required arguments
// and names outside the signature are errors.
func (s Signature) Validate(directive string, args Args) error {
	var missing []string
	for _, n := range s.Required {
		if !args.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing argument(s) %s", strings.Join(missing, ", "))
	}
	for _, n := range args.Names() {
		if !s.accepts(n) {
			return fmt.Errorf("unexpected argument %q", n)
		}
	}
	return nil
}

func (s Signature) accepts(name string) bool {
	for _, group := range [][]string{s.Required, s.Optional} {
		for _, n := range group {
			if n == name {
				return true
			}
		}
	}
	return false
}

// RegexValidator checks a string argument against a regular expression.
// Absent arguments pass.
type RegexValidator struct {
	Arg         string
	Pattern     *regexp.Regexp
	Description string // Human-readable description of what the pattern expects
}

// Validate implements the Validator interface.
func (v *RegexValidator) Validate(directive string, args Args) error {
	val, ok := args.Get(v.Arg)
	if !ok {
		return nil
	}
	s, ok := val.(string)
	if !ok || !v.Pattern.MatchString(s) {
		return fmt.Errorf("argument %q does not match expected pattern: %s", v.Arg, v.Description)
	}
	return nil
}

// NewRegexValidator compiles pattern into a RegexValidator.
func NewRegexValidator(arg, pattern, description string) (*RegexValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern for argument %s: %w", arg, err)
	}
	return &RegexValidator{Arg: arg, Pattern: re, Description: description}, nil
}

// FuncValidator uses a custom function to validate arguments.
type FuncValidator struct {
	ValidateFunc func(directive string, args Args) error
}

// Validate implements the Validator interface.
func (v *FuncValidator) Validate(directive string, args Args) error {
	return v.ValidateFunc(directive, args)
}

// Validators runs each validator in order and stops at the first failure.
type Validators []Validator

// Validate implements the Validator interface.
func (vs Validators) Validate(directive string, args Args) error {
	for _, v := range vs {
		if v == nil {
			continue
		}
		if err := v.Validate(directive, args); err != nil {
			return err
		}
	}
	return nil
}
