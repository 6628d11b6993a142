//go:build nogpu

package gpu

import (
	"errors"
	"time"

	"github.com/gogpu/fk"
)

var errNoGPU = errors.New("gpu: built with the nogpu tag")

// Open always fails in nogpu builds.
func Open(time.Duration) (fk.Stream, error) { return nil, errNoGPU }

// OpenShared always fails in nogpu builds.
func OpenShared(any, time.Duration) (fk.Stream, error) { return nil, errNoGPU }
