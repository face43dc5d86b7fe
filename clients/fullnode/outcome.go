package fullnode

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const maxErrorSnippet = 256

// Response is a fully read upstream answer.
type Response struct {
	Endpoint   string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Outcome is the result of a single attempt: either Terminal, ending the failover
// walk, or Transient, moving it on to the next endpoint.
type Outcome struct {
	response  *Response
	transient *TransientError
}

func Terminal(res *Response) Outcome {
	return Outcome{response: res}
}

func Transient(err *TransientError) Outcome {
	return Outcome{transient: err}
}

// Terminal returns the response if the outcome is terminal.
func (o Outcome) Terminal() (*Response, bool) {
	return o.response, o.response != nil
}

// Err returns the failure if the outcome is transient.
func (o Outcome) Err() *TransientError {
	return o.transient
}

// Classify decides whether an attempt ends the walk. 2xx and 4xx answers are terminal;
// transport errors, timeouts, 5xx and any other status are transient.
func Classify(endpoint string, res *Response, err error) Outcome {
	if err != nil {
		return Transient(&TransientError{
			Endpoint: endpoint,
			Timeout:  errors.Is(err, context.DeadlineExceeded),
			Err:      err,
		})
	}
	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300, res.StatusCode >= 400 && res.StatusCode < 500:
		return Terminal(res)
	default:
		return Transient(&TransientError{
			Endpoint:   endpoint,
			StatusCode: res.StatusCode,
			Err:        errors.New(statusMessage(res)),
		})
	}
}

func statusMessage(res *Response) string {
	msg := strings.TrimSpace(string(res.Body))
	if len(msg) > maxErrorSnippet {
		msg = msg[:maxErrorSnippet] + "..."
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	if msg == "" {
		msg = "unexpected status"
	}
	return msg
}
