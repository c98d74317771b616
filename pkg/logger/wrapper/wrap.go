package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx of the place the error was raised.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// Error wraps err with the LogCtx of ctx. When err already carries a LogCtx
// the fields of ctx take precedence and the missing ones are kept.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	c, _ := ctx.Value(LogCtxKey).(LogCtx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		c = merge(e.logCtx, c)
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: c,
	}
}

// ErrorCtx returns ctx enriched with the LogCtx carried by err. Fields set on
// the error win; fields it lacks, such as a request id, are kept from ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
