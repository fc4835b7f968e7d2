package errors

// Result is the outcome of a call to an external service: either a value or
// the error that prevented one. Callers pick their fallback explicitly with Or.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a failure. A nil err is replaced so a Fail is never mistaken for Ok.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = New(ErrCodeInternal, "failure without cause", nil)
	}
	return Result[T]{err: err}
}

// From builds a Result from a conventional (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

func (r Result[T]) IsOk() bool { return r.err == nil }

func (r Result[T]) Err() error { return r.err }

// Get returns the value and error as a pair.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// Or returns the value on success and fallback otherwise.
func (r Result[T]) Or(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}
