package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		BookingID string
		DriverID  string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

// WithLogCtx merges newLc into the LogCtx already stored in ctx. Empty fields keep the old value.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return context.WithValue(ctx, LogCtxKey, merge(lc, newLc))
}

// merge overlays the non-empty fields of top onto base.
func merge(base, top LogCtx) LogCtx {
	if top.Action != "" {
		base.Action = top.Action
	}
	if top.UserID != "" {
		base.UserID = top.UserID
	}
	if top.RequestID != "" {
		base.RequestID = top.RequestID
	}
	if top.BookingID != "" {
		base.BookingID = top.BookingID
	}
	if top.DriverID != "" {
		base.DriverID = top.DriverID
	}
	return base
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return WithLogCtx(ctx, LogCtx{UserID: userID})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithLogCtx(ctx, LogCtx{RequestID: requestID})
}

func WithBookingID(ctx context.Context, bookingID string) context.Context {
	return WithLogCtx(ctx, LogCtx{BookingID: bookingID})
}

func WithDriverID(ctx context.Context, driverID string) context.Context {
	return WithLogCtx(ctx, LogCtx{DriverID: driverID})
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	return WithLogCtx(ctx, LogCtx{Action: action})
}

// GetRequestID returns the request id stored in ctx, or an empty string.
func GetRequestID(ctx context.Context) string {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc.RequestID
	}
	return ""
}
