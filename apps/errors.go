package apps

// ArgumentError reports invalid command line arguments, as opposed to a failure while running the command.
type ArgumentError struct {
	msg string
}

func NewArgumentError(msg string) *ArgumentError {
	return &ArgumentError{msg}
}

func (err *ArgumentError) Error() string {
	return err.msg
}
