package error

import "errors"

var (
	ErrDebuggerIsClosed           = errors.New("debug is closed")
	ErrProgramIsRunningOptionFail = errors.New("The program is running")
	ErrNotLaunched                = errors.New("The debug session has not been launched")
	ErrNotStopped                 = errors.New("The program is not stopped")
	ErrAlreadyLaunched            = errors.New("The debug session has already been launched")
	ErrInvalidDatapack            = errors.New("Invalid datapack")
	ErrFunctionNotFound           = errors.New("Function not found")
	ErrInvalidLaunchArguments     = errors.New("Invalid launch arguments")
	ErrCancelled                  = errors.New("cancelled")
	ErrConnectionClosed           = errors.New("Connection to the server is closed")
	ErrUnsupportedRequest         = errors.New("Unsupported request")
	ErrUnknownReference           = errors.New("Unknown variables reference")
)
