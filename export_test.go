package cavl

import "github.com/arborist-dev/cavl/internal/raceguard"

// SetRaceGuard installs (or, with nil, removes) a lock wait-for-graph
// observer shared by every holderMutex in the package. It exists only so
// tests can wire in internal/raceguard during a stress run; there is no
// public API for it.
func SetRaceGuard(d *raceguard.Detector) {
	guard = d
}
