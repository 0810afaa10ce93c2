package config

import (
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// ExtraDirectives is the result of tokenizing a parameter file's
// free-form "EXTRA_ARGS" line (SPEC_FULL.md DOMAIN STACK: shlex tokenizes
// it the same way it splits shell words for its original caller).
// Recognised directives override fields the flat key/value parameter
// format has no dedicated category for.
type ExtraDirectives struct {
	HoleFill  bool
	BandCount int
}

// ParseExtraDirectives tokenizes line (e.g. "--hole-fill --band-count
// 12") into ExtraDirectives. Unknown flags are ignored rather than
// rejected: EXTRA_ARGS is meant to be forward-compatible across engine
// versions, matching the rest of the parameter-file format's
// best-effort reading (spec §6 "missing file = create from defaults").
func ParseExtraDirectives(line string) (ExtraDirectives, error) {
	var d ExtraDirectives
	if strings.TrimSpace(line) == "" {
		return d, nil
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		return d, errInvalid("config: tokenizing extra directives %q: %v", line, err)
	}
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "--hole-fill":
			d.HoleFill = true
		case "--band-count":
			if i+1 >= len(tokens) {
				return d, errInvalid("config: --band-count requires a value")
			}
			i++
			n, err := strconv.Atoi(tokens[i])
			if err != nil {
				return d, errInvalid("config: --band-count value %q is not an integer", tokens[i])
			}
			d.BandCount = n
		}
	}
	return d, nil
}
