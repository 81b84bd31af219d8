package routers

import (
	"GarmentStudio-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()
	r.Static("/static", "./static")
	v1 := r.Group("/v1/api")
	{
		v1.POST("/products", api.CreateProduct)
		v1.GET("/products", api.GetProducts)
		v1.GET("/products/:product_id", api.GetProduct)
		v1.DELETE("/products/:product_id", api.DeleteProduct)
		v1.DELETE("/products", api.ClearProducts)
		v1.POST("/products/:product_id/retry", api.RetryProduct)
		v1.GET("/logs", api.GetErrorLogs)
		v1.GET("/logs/:log_id", api.GetErrorLog)
		v1.DELETE("/logs/:log_id", api.DeleteErrorLog)
		v1.DELETE("/logs", api.ClearErrorLogs)
		v1.GET("/metrics", api.GetModelUsage)
		v1.GET("/metrics/:model_id", api.GetModelUsageByID)
		v1.DELETE("/metrics/:model_id", api.DeleteModelUsage)
		v1.DELETE("/metrics", api.ClearModelUsage)
	}
	r.GET("/products/:product_id/ws", api.ProductProgressWebSocket)
	return r
}
