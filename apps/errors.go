package apps

import "fmt"

// ArgumentError reports bad command-line input; it is printed as is, without a stack.
type ArgumentError struct {
	msg string
}

func NewArgumentError(format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{fmt.Sprintf(format, args...)}
}

func (err *ArgumentError) Error() string {
	return err.msg
}
