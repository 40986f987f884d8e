package clienttool

import "errors"

// Tool registry errors.
var (
	// ErrUnknownTool is returned when a tool name is not in the allow-list.
	ErrUnknownTool = errors.New("unknown client tool")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolRunNil is returned when a tool has no run function.
	ErrToolRunNil = errors.New("tool run function cannot be nil")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrMissingArg is returned when a required argument is missing or has
	// the wrong type.
	ErrMissingArg = errors.New("missing required argument")
)
