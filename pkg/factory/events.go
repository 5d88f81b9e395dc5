package factory

import "github.com/cadhy/cadhy/pkg/kernel"

// Events is the observer bag a UI attaches to a single factory. All fields
// are optional. Callbacks are invoked outside the factory's internal lock,
// on the goroutine that drove the transition; there is no multi-subscriber
// broadcast at this layer.
type Events struct {
	OnPreviewUpdate   func(mesh *kernel.Mesh)
	OnCommit          func(result *Result)
	OnCancel          func()
	OnError           func(err error)
	OnParameterChange func(name string, value any)
}

// MultiEvents is the observer bag for a multi-factory.
type MultiEvents struct {
	OnPreviewUpdate func(meshes []IndexedMesh)
	OnCommit        func(result *MultiResult)
	OnCancel        func()
	OnError         func(err error)
}
