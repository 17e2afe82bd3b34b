package connection

import "errors"

var ErrNotFound = errors.New("not found")
