package validation

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed policy_schema.cue
var policySchema string

// Policy holds the local rules applied before any network check.
type Policy struct {
	UsernameMinLength int    `json:"username_min_length"`
	UsernameMaxLength int    `json:"username_max_length"`
	UsernamePattern   string `json:"username_pattern"`
	UsernameHint      string `json:"username_hint"`
	PasswordMinLength int    `json:"password_min_length"`

	pattern *regexp.Regexp
}

// DefaultPolicy returns the built-in rules: usernames of 3 to 39 letters
// and digits, passwords of at least 5 characters.
func DefaultPolicy() Policy {
	p := Policy{
		UsernameMinLength: 3,
		UsernameMaxLength: 39,
		UsernamePattern:   `^[A-Za-z0-9]+$`,
		UsernameHint:      "Username can only contain letters and digits",
		PasswordMinLength: 5,
	}
	p.pattern = regexp.MustCompile(p.UsernamePattern)
	return p
}

// PolicyError reports an invalid policy file.
type PolicyError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *PolicyError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadPolicy reads a CUE policy file. Fields left out take the defaults of
// DefaultPolicy; unknown fields and out-of-range values are rejected.
//
// Example file:
//
//	username_min_length: 4
//	password_min_length: 8
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(path, data)
}

// ParsePolicy is LoadPolicy for in-memory CUE source. filename is used in
// error positions only.
func ParsePolicy(filename string, src []byte) (Policy, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(policySchema, cue.Filename("policy_schema.cue"))
	if err := schema.Err(); err != nil {
		return Policy{}, fmt.Errorf("compile policy schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Policy{}, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Policy")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, formatCUEError(err)
	}

	var p Policy
	if err := unified.Decode(&p); err != nil {
		return Policy{}, formatCUEError(err)
	}

	if err := p.compile(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// compile prepares the username pattern.
func (p *Policy) compile() error {
	re, err := regexp.Compile(p.UsernamePattern)
	if err != nil {
		return &PolicyError{Field: "username_pattern", Message: err.Error()}
	}
	p.pattern = re
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	pe := &PolicyError{Field: "policy", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		pe.Field = path[len(path)-1]
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}
