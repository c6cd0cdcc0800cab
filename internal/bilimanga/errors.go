package bilimanga

import (
	"errors"
	"fmt"
)

// Response codes the gateway documents for the endpoints we call
const (
	CodeOK              = 0
	CodeUnauthenticated = -101
)

var (
	// ErrMalformedResponse matches payloads missing an expected field or with an unexpected shape
	ErrMalformedResponse = errors.New("malformed gateway response")
	// ErrNoCouponAvailable is returned when no coupon can be resolved automatically for a chapter
	ErrNoCouponAvailable = errors.New("no coupon available")
	// ErrUnexpectedResponse matches any response code outside the endpoint's documented set
	ErrUnexpectedResponse = errors.New("unexpected gateway response")
	// ErrTransport matches network, timeout and HTTP-level failures
	ErrTransport = errors.New("gateway transport failure")
)

// MalformedResponseError carries the raw payload that failed to decode
type MalformedResponseError struct {
	Endpoint string
	Field    string
	Raw      []byte
	Err      error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed response"
	if e.Endpoint != "" {
		msg = e.Endpoint + ": " + msg
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Raw) > 0 {
		msg += fmt.Sprintf(". Body: %s", e.Raw)
	}
	return msg
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// GatewayError is an application-level error: the gateway answered with a non-success code
type GatewayError struct {
	Endpoint string
	Code     int
	Message  string
	Raw      []byte
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: unexpected response code (%d) %s. Body: %s", e.Endpoint, e.Code, e.Message, e.Raw)
}

func (e *GatewayError) Is(target error) bool { return target == ErrUnexpectedResponse }

// TransportError wraps failures reaching the gateway
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: non-200 status code -> (%d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// annotate attaches the endpoint and full payload to a decoding error
func annotate(err error, endpoint string, raw []byte) error {
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		malformed.Endpoint = endpoint
		if len(malformed.Raw) == 0 {
			malformed.Raw = raw
		}
	}
	return err
}
