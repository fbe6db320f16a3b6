package errors

import (
	"context"
	stderrors "errors"
)

// Normalize maps err onto the taxonomy. Library errors pass through
// unchanged; context errors become KindTimeout or KindTransport; anything
// else becomes a KindInternal VaultError carrying err as its cause.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	var ve *VaultError
	if stderrors.As(err, &ve) {
		return err
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(KindTimeout, err, "deadline exceeded")
	case stderrors.Is(err, context.Canceled):
		return Wrap(KindTransport, err, "request canceled")
	default:
		return Wrap(KindInternal, err, "unexpected error")
	}
}

// Guard runs fn and returns its error normalized. A panic inside fn is
// recovered and reported as a KindInternal error.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return Normalize(fn())
}

// GuardValue is Guard for functions that also return a value. The zero
// value is returned alongside any error.
func GuardValue[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, err = zero, recovered(r)
		}
	}()
	result, err = fn()
	if err != nil {
		var zero T
		return zero, Normalize(err)
	}
	return result, nil
}

func recovered(r any) error {
	if cause, ok := r.(error); ok {
		return Wrap(KindInternal, cause, "panic")
	}
	return Newf(KindInternal, "panic: %v", r)
}
