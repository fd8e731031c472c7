package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/shellrunner/shellrunner-server/internal/executor"
)

// registerRoutes maps the dashboard's REST surface 1:1 onto the executor
// façade, mirroring the teacher's flat route-per-operation style in
// cmd/zmux-server/main.go.
func registerRoutes(rg *gin.RouterGroup, exec *executor.Executor) {
	h := &handlers{exec: exec}

	rg.GET("", h.list)
	rg.POST("", h.start)
	rg.GET("/:pid", h.get)
	rg.GET("/:pid/output", h.output)
	rg.POST("/:pid/stop", h.stop)
	rg.POST("/:pid/clean", h.clean)
	rg.POST("/clean-all", h.cleanAll)
	rg.POST("/clean-selected", h.cleanSelected)
}
