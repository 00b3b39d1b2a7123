package middleware

import "github.com/aretw0/agentgraph/pkg/ports"

// Middleware allows wrapping a MemoryStore to add behavior.
type Middleware func(ports.MemoryStore) ports.MemoryStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.MemoryStore, mws ...Middleware) ports.MemoryStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
