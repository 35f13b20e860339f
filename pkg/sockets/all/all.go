// Package all is a convenience wrapper that registers all known socket implementations.
// Importing this package enables the gosocket factory to find drivers for any
// supported socket brand.
package all

// Import each implementation package for its side-effects (the init() function).
import (
	_ "github.com/mlsorensen/gosocket/pkg/sockets/mock"
	_ "github.com/mlsorensen/gosocket/pkg/sockets/voltcraft"
	// When you add an [model] socket, you would add this line:
	// _ "github.com/mlsorensen/gosocket/pkg/sockets/[model]"
)
