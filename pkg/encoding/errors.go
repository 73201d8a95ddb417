package encoding

import (
	"github.com/pkg/errors"
)

var (
	ErrMalformedResult = errors.New("malformed result")
	ErrResultNil       = errors.New("result is nil")
)
