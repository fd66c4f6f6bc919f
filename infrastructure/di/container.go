// Package di wires the application's dependencies.
package di

import (
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/config"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest"
	"github.com/umeboshi2/kotti-jsonapi/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Level      zap.AtomicLevel
	Logger     *zap.Logger
	Registry   *registry.Registry
	Site       *site.Site
	Principals ports.PrincipalStore
	Collector  *observability.Collector
	Watcher    *config.Watcher
	Router     *rest.Router
}
