package filter

import "errors"

var errMissingReferencePlane = errors.New("filter: latest slot is missing the right plane")
