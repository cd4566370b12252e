package compositor

import "errors"

var (
	// ErrUnknownDefinition is returned when a node or workspace definition name is not registered.
	ErrUnknownDefinition = errors.New("compositor: unknown definition")

	// ErrDefinitionExists is returned when registering a definition under a name already in use.
	ErrDefinitionExists = errors.New("compositor: definition already exists")

	// ErrDefinitionInUse is returned when removing a definition still referenced by a workspace definition or workspace.
	ErrDefinitionInUse = errors.New("compositor: definition in use")

	// ErrInvalidDefinition is returned when a node definition references names it does not declare.
	ErrInvalidDefinition = errors.New("compositor: invalid definition")

	// ErrInputMismatch is returned when a workspace is created with the wrong number of input textures.
	ErrInputMismatch = errors.New("compositor: input texture count mismatch")
)
