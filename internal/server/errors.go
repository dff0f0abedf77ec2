package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/worker"

	"connectrpc.com/connect"
)

// errorCode maps service errors onto the RPC taxonomy. ErrNoMatchHistory is
// not an error on the wire and is handled by the callers.
func errorCode(err error) connect.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidPlayerID), errors.Is(err, domain.ErrInvalidRiotID):
		return connect.CodeInvalidArgument
	case errors.Is(err, domain.ErrPlayerNotResolvable):
		return connect.CodeNotFound
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, worker.ErrQueueFull):
		return connect.CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	default:
		return connect.CodeInternal
	}
}

func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case connect.CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func toConnectError(err error) *connect.Error {
	code := errorCode(err)
	cerr := connect.NewError(code, err)
	if code == connect.CodeUnavailable {
		cerr.Meta().Set("Retry-After", retryAfterHeader(err))
	}
	return cerr
}

func retryAfterHeader(err error) string {
	d := api.RetryAfter(err)
	if d <= 0 {
		d = constants.DefaultRetryAfter
	}
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
