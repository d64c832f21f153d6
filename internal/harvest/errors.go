package harvest

import "errors"

var (
	// ErrBindPermission means the source port could not be bound for lack of
	// privilege. Ports below 1024 usually need root or CAP_NET_BIND_SERVICE.
	ErrBindPermission = errors.New("no permission to bind source port")

	// ErrInvalidOptions is returned by Start for a non-positive rate or give-up time.
	ErrInvalidOptions = errors.New("invalid harvest options")
)
