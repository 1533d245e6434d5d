package announcer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/al002/zbfetch/internal/resolver"
	"github.com/al002/zbfetch/internal/tracker"
)

// AnnounceError pairs a tracker error with a message fit for a user.
type AnnounceError struct {
	Err     error
	Message string
	Unknown bool
}

func (e *AnnounceError) Error() string {
	return e.Message
}

func (e *AnnounceError) Unwrap() error {
	return e.Err
}

// Describe classifies err returned by a tracker at trackerURL.
func Describe(err error, trackerURL string) (e *AnnounceError) {
	e = &AnnounceError{Err: err}
	hostname := func() string {
		parsed, perr := url.Parse(trackerURL)
		if perr != nil {
			return trackerURL
		}
		return parsed.Hostname()
	}

	var (
		terr   *tracker.Error
		serr   *tracker.StatusError
		dnsErr *net.DNSError
		nerr   net.Error
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.Message = "announce cancelled"
		return
	case errors.Is(err, tracker.ErrDecode):
		e.Message = "invalid response from tracker"
		return
	case errors.Is(err, resolver.ErrInvalidPort):
		e.Message = "invalid port number in tracker address: " + hostname()
		return
	case errors.Is(err, resolver.ErrNoAddress):
		e.Message = "tracker has no address: " + hostname()
		return
	case errors.As(err, &terr):
		e.Message = "announce error: " + terr.FailureReason
		return
	case errors.As(err, &serr):
		e.Message = fmt.Sprintf("tracker returned HTTP status: %d", serr.Code)
		if strings.HasPrefix(serr.Header.Get("Content-Type"), "text/plain") {
			msg := serr.Body
			if len(msg) > 100 {
				msg = msg[:97] + "..."
			}
			e.Message += " message: " + msg
		}
		return
	case errors.As(err, &dnsErr):
		if dnsErr.IsNotFound {
			e.Message = "host not found: " + dnsErr.Name
		} else {
			e.Message = "temporary failure in name resolution: " + dnsErr.Name
		}
		return
	case errors.As(err, &nerr) && nerr.Timeout():
		e.Message = "contacting tracker timeout"
		return
	}

	s := err.Error()
	switch {
	case strings.HasSuffix(s, "connection refused"):
		e.Message = "tracker refused the connection"
	case strings.HasSuffix(s, "no route to host"):
		e.Message = "no route to host: " + hostname()
	case strings.HasSuffix(s, "tls: handshake failure"):
		e.Message = "TLS handshake has failed"
	case strings.HasSuffix(s, "connection reset by peer"), strings.HasSuffix(s, "EOF"):
		e.Message = "tracker closed the connection"
	case strings.HasSuffix(s, "server gave HTTP response to HTTPS client"),
		strings.Contains(s, "malformed HTTP status code"):
		e.Message = "invalid server response"
	case strings.Contains(s, "network is unreachable"):
		e.Message = "network is unreachable: " + hostname()
	default:
		e.Message = "unknown error in announce"
		e.Unknown = true
	}
	return
}
