package contracts

import "github.com/julienschmidt/httprouter"

// Handler is a module that mounts its routes on a router. The catalog,
// availability, appointment and health handlers all satisfy it.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
