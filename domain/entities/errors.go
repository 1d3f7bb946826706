package entities

import "errors"

// Error kinds surfaced by the conversation core. Callers match with errors.Is;
// components wrap these with fmt.Errorf("%w: ...") to attach detail.
var (
	// ErrPermissionDenied means microphone access was refused
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrUnsupportedCapability means a required audio or network feature is missing
	ErrUnsupportedCapability = errors.New("required capability is unavailable")

	// ErrConnectionFailed means the streaming transport could not be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrAbnormalClose means the remote side closed the stream with a non-normal
	// close code or the transport dropped mid-session
	ErrAbnormalClose = errors.New("connection closed abnormally")

	// ErrAnalysisParse means the post-session analysis response was not
	// well-formed. Non-fatal: locally computed metrics remain valid.
	ErrAnalysisParse = errors.New("analysis response was not well-formed")
)
