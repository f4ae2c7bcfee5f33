package maintenance

import "errors"

// ErrJobNotFound is returned when a named job is not registered
var ErrJobNotFound = errors.New("job not found")
