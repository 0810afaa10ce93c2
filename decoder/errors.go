package decoder

import "errors"

var errNoLatestPlane = errors.New("decoder: latest slot has no left plane")
