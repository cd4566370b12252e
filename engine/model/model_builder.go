package model

// ModelBuilderOption is a function that configures a model instance during construction.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the model.
//
// Parameters:
//   - name: the identifier for the model
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithMeshes is an option builder that appends sub-meshes to the model.
//
// Parameters:
//   - meshes: the meshes to append
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes ...*Mesh) ModelBuilderOption {
	return func(m *model) {
		m.meshes = append(m.meshes, meshes...)
	}
}
