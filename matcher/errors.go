package matcher

import "errors"

var (
	errMissingPlanes    = errors.New("matcher: latest slot is missing left or right plane")
	errGeometryMismatch = errors.New("matcher: left and right plane geometry differ")
)
