package services

import (
	"context"
	"errors"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"
)

var nopLogger utils.Logger = utils.NewNopLogger()

func logOrNop(l utils.Logger) utils.Logger {
	if l == nil {
		return nopLogger
	}
	return l
}

func nowFrom(c utils.Clock) time.Time {
	if c == nil {
		return utils.NowUTC()
	}
	return c().UTC()
}

// storeError converts repository failures into the public taxonomy.
func storeError(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsDomain(err):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return domain.NotFoundError{Resource: resource, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.InternalError{Msg: "request cancelled", Err: err}
	default:
		return domain.InternalError{Err: err}
	}
}

type requestIDKey struct{}

// WithRequestID stores the request id so services can tag their log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
