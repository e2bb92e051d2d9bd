package catalog

import "errors"

// ErrServiceNotFound is returned when a service id is unknown or inactive
var ErrServiceNotFound = errors.New("catalog: service not found")
