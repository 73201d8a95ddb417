package profiler

import (
	"os"

	"github.com/pkg/errors"
)

// FileOutputHandler returns an OutputHandler writing each result to path,
// replacing the previous one.
func FileOutputHandler(path string) OutputHandler {
	return func(data []byte) error {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "writing result to %s", path)
		}

		return nil
	}
}

// ChainOutputHandlers calls every handler in order and returns the first
// error, after all of them ran.
func ChainOutputHandlers(handlers ...OutputHandler) OutputHandler {
	return func(data []byte) error {
		var first error
		for _, h := range handlers {
			if err := h(data); err != nil && first == nil {
				first = err
			}
		}

		return first
	}
}
