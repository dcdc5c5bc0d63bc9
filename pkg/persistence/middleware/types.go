package middleware

import "github.com/aretw0/ledgerchat/pkg/ports"

// Middleware wraps a Cache to add behavior.
type Middleware func(ports.Cache) ports.Cache

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(c ports.Cache, mws ...Middleware) ports.Cache {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
