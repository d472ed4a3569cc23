package health

import "errors"

// HumanErr carries two messages: HumanMessage is shown to end-users (CLI output, HTTP bodies), and the embedded HealthErr is what gets logged.
type HumanErr struct {
	HumanMessage string
	HealthErr
}

// NewHumanErr returns a HumanErr, which has both a message suitable for end-users and a message suitable for logging.
func NewHumanErr(humanMsg string, msg string, args ...any) error {
	return &HumanErr{HumanMessage: humanMsg, HealthErr: HealthErr{Message: msg, attrs: args}}
}

// WrapHuman is NewHumanErr for an underlying error. errors.Is/As see through it to wrapped.
func WrapHuman(humanMsg string, msg string, wrapped error, args ...any) error {
	if wrapped == nil {
		wrapped = errors.New("nil wrapped error. WARNING: you should not call WrapHuman with a nil error")
	}
	return &HumanErr{HumanMessage: humanMsg, HealthErr: HealthErr{Message: msg, wrapped: wrapped, attrs: args}}
}

// Error satisfies the error interface.
//
// Only the human message will appear here (unless its empty). The logging-suitable message can be accessed via e.HealthErr.Error().
func (e *HumanErr) Error() string {
	if e.HumanMessage == "" {
		return e.HealthErr.Error()
	}
	return e.HumanMessage
}

// UserMessage returns the human message of the outermost HumanErr in err's chain, or err.Error() if there is none.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var h *HumanErr
	if errors.As(err, &h) && h.HumanMessage != "" {
		return h.HumanMessage
	}
	return err.Error()
}
