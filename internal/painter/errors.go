package painter

import "fmt"

// ConnectionError reports a painter that could not open its canvas connection.
type ConnectionError struct {
	Worker int
	Addr   string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("painter %d: connect %s: %v", e.Worker, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError reports a failed write or flush on a painter's connection.
type WriteError struct {
	Worker int
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("painter %d: write: %v", e.Worker, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CaptureError reports a failed frame capture or publish.
type CaptureError struct {
	Cycle uint64
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capturer: cycle %d: %v", e.Cycle, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
