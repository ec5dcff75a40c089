package api

import (
	"github.com/gin-gonic/gin"
	"redfishd/api/redfish"
	"redfishd/middleware"
	"redfishd/services/account"
	"redfishd/services/session"
	"redfishd/services/tree"
	"redfishd/utils/config"
)

// NewEngine builds a gin engine for one listener. The same resource tree
// and stores back every listener; only the transport policy differs.
func NewEngine(policy middleware.Policy, t *tree.Tree, accounts *account.Service, sessions *session.Service) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if config.IsDebugMode() {
		engine.Use(gin.Logger())
	}

	// Known URIs answer 405 to unsupported methods instead of 404
	engine.HandleMethodNotAllowed = true

	RegisterRoutes(engine, policy, t, accounts, sessions)
	return engine
}

// RegisterRoutes sets up the Redfish routes under /redfish, guarded by the
// listener's transport policy.
func RegisterRoutes(engine *gin.Engine, policy middleware.Policy, t *tree.Tree, accounts *account.Service, sessions *session.Service) {
	handler := redfish.NewHandler(t, accounts, sessions)

	group := engine.Group("/redfish", middleware.Enforce(policy, accounts, sessions))
	handler.RegisterRoutes(group)
}
