package main

import (
	"fmt"

	"GarmentStudio-server/config"
	"GarmentStudio-server/models"
	"GarmentStudio-server/routers"
	"GarmentStudio-server/service"
)

func main() {
	config.InitConfig()
	fmt.Println("Server starting on port", config.AppConfig.Server.Port)
	models.InitDB()
	fmt.Println("Database initialized")

	service.InitQueue()
	fmt.Println("Queue initialized")

	service.InitMinIO()
	fmt.Println("MinIO initialized")

	store := models.NewStore(models.GormDB)
	sink := &models.DBSink{DB: models.GormDB}
	gen := service.NewGenClientFromConfig(func(modelID string, cost float64) {
		if err := models.RecordModelUsage(models.GormDB, modelID, cost); err != nil {
			fmt.Println("记录模型用量失败:", err)
		}
	})

	orchestrator := service.NewOrchestratorFromConfig(store, gen, sink, service.MinioImageStore{})
	orchestrator.Start()
	service.StartWorker(config.AppConfig.Pipeline.WorkerConcurrency, orchestrator)

	r := routers.InitRouter()
	r.Run(config.AppConfig.Server.Port)
}
