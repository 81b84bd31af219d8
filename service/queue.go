package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"GarmentStudio-server/config"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateProduct = "product:generate"
)

type ProductPayload struct {
	ProductID string `json:"product_id"`
}

var QueueClient *asynq.Client

// InitQueue 初始化
func InitQueue() {
	QueueClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	})
}

// EnqueueGenerateProduct 新建/重试的记录入队，触发立即推进，
// 不必等下一轮扫描。入队失败不影响正确性（扫描循环兜底）。
func EnqueueGenerateProduct(productID string) error {
	payload, err := json.Marshal(ProductPayload{ProductID: productID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypeGenerateProduct, payload,
		asynq.MaxRetry(3),             // 失败重试 3 次
		asynq.Timeout(10*time.Minute), // 图像合成较慢，设置较长超时
		asynq.Retention(24*time.Hour), // 任务结果在 Redis 保留时间
	)

	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	log.Printf("[Queue] Product Enqueued: ID=%s, TaskID=%s", productID, info.ID)
	return nil
}

// StartWorker 启动队列消费者，处理函数走编排器的同一条守卫推进路径
func StartWorker(concurrency int, orchestrator *Orchestrator) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateProduct, func(ctx context.Context, t *asynq.Task) error {
		var payload ProductPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
		}
		orchestrator.AdvanceByID(ctx, payload.ProductID)
		// 业务失败已由编排器落库并通知，不触发队列重试
		return nil
	})

	log.Printf("Starting Product Worker with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run server: %v", err)
		}
	}()
}
