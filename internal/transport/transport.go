// SPDX-License-Identifier: MIT

// Package transport delivers worker events to consumers outside the
// pipeline: the console, WebSocket clients, and UDP listeners. Every
// delivery path implements worker.Sink and is safe for concurrent use.
package transport

import (
	"io"

	"spectro/internal/worker"
)

// Sink is a worker event consumer that owns releasable resources.
type Sink interface {
	worker.Sink
	io.Closer
}
