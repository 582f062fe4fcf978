package homeassistant

import "errors"

var (
	// ErrAuthInvalid is returned when Home Assistant rejects the access token.
	ErrAuthInvalid = errors.New("homeassistant: invalid access token")

	ErrNotConnected = errors.New("homeassistant: not connected")

	// ErrDisconnected is delivered on Done and to in-flight calls when the websocket drops.
	ErrDisconnected = errors.New("homeassistant: disconnected")

	// ErrCommandFailed wraps an unsuccessful result message.
	ErrCommandFailed = errors.New("homeassistant: command failed")

	ErrTimeout = errors.New("homeassistant: timed out waiting for response")

	errUnexpectedMessage = errors.New("homeassistant: unexpected message")
)
