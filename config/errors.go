package config

import "github.com/stereodpl/dpl/dplerr"

func errInvalid(format string, args ...any) error {
	return dplerr.Configuration(format, args...)
}
