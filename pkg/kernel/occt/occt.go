// Package occt reserves the engine slot for an Open CASCADE-backed
// implementation of kernel.Operations. B-rep booleans and exact surface
// tessellation need a CGo binding that has not landed yet; until it does,
// New reports the engine as unavailable and callers fall back to the sdfx
// engine.
package occt

import (
	"errors"

	"github.com/cadhy/cadhy/pkg/kernel"
)

// New returns an error indicating the Open CASCADE engine is not available
// in this build.
func New() (kernel.Operations, error) {
	return nil, errors.New("occt engine not available: the sdfx engine is the supported backend")
}
