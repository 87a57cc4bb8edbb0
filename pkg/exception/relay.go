package exception

import "errors"

var (
	ErrRelayFull   = errors.New("relay: queue full")
	ErrRelayClosed = errors.New("relay: closed")
)
