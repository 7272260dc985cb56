package arenadto

import "fmt"

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	ErrUnknownEvent = staticErr("unknown arena event")
)

// ConfigValidationError reports a missing required field in a player config.
type ConfigValidationError struct {
	Side  string
	Field string
}

func (e *ConfigValidationError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("match config: %s is required", e.Field)
	}
	return fmt.Sprintf("match config: %s player %s is required", e.Side, e.Field)
}

// ControlFailure is a well-formed orchestrator reply whose status is not success.
type ControlFailure struct {
	Message string
}

func (e *ControlFailure) Error() string {
	if e.Message == "" {
		return "orchestrator rejected the request"
	}
	return e.Message
}
