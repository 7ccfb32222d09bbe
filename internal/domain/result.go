package domain

// Result is the uniform envelope every external call is normalized into.
// No error crosses the gateway client boundary: callers branch on Success
// only, and Err carries operator-facing detail for logs.
type Result[T any] struct {
	Success bool
	Data    T
	Err     error
}

// Ok wraps a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail wraps a failed result.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}
