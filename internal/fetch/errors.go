package fetch

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/nao1215/pathscan/internal/model"
)

// ClassifyError maps a transport error to the error kind recorded in a
// failed visit. Timeouts are checked first: a timed-out dial satisfies
// both net.Error and *net.OpError, and it should count as a timeout.
func ClassifyError(err error) model.ErrorKind {
	if err == nil {
		return model.ErrorKindNone
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ErrorKindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.ErrorKindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return model.ErrorKindConnection
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return model.ErrorKindConnection
	}

	return model.ErrorKindOther
}
