package controllers

import (
	"github.com/Zazh/dpa-lms-sub000/services"
)

// Services is the engine service graph, wired once at startup.
var Services *services.Registry

// Init installs the service registry used by the course controllers.
func Init(registry *services.Registry) {
	Services = registry
}
