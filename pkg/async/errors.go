package async

import "errors"

// ErrTimeout is returned by AwaitWithTimeout when the deadline passes
// before the background work completes.
var ErrTimeout = errors.New("await timed out")
