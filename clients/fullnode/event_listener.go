package fullnode

import "time"

type EventListener interface {
	OnAttempt(endpoint, path string, status int, took time.Duration)
	OnTransient(endpoint, path string, err error)
	// OnFailover fires when a transient failure at from moves the request on to next.
	OnFailover(from, next, path string)
	OnExhausted(network, path string)
}

type SelectiveListener struct {
	OnAttemptCb   func(endpoint, path string, status int, took time.Duration)
	OnTransientCb func(endpoint, path string, err error)
	OnFailoverCb  func(from, next, path string)
	OnExhaustedCb func(network, path string)
}

func (l *SelectiveListener) OnAttempt(endpoint, path string, status int, took time.Duration) {
	if l.OnAttemptCb != nil {
		l.OnAttemptCb(endpoint, path, status, took)
	}
}

func (l *SelectiveListener) OnTransient(endpoint, path string, err error) {
	if l.OnTransientCb != nil {
		l.OnTransientCb(endpoint, path, err)
	}
}

func (l *SelectiveListener) OnFailover(from, next, path string) {
	if l.OnFailoverCb != nil {
		l.OnFailoverCb(from, next, path)
	}
}

func (l *SelectiveListener) OnExhausted(network, path string) {
	if l.OnExhaustedCb != nil {
		l.OnExhaustedCb(network, path)
	}
}
