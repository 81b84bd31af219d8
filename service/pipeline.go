// ...existing code...
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"GarmentStudio-server/config"
	"GarmentStudio-server/models"

	"gorm.io/gorm"
)

const (
	DefaultTickInterval  = 5 * time.Second
	DefaultRecordTimeout = 10 * time.Minute
	DefaultMaxRetries    = 3
)

// RecordStore 编排器对记录仓库的依赖。UpdateProduct 对已删除的记录
// 必须是静默 no-op（删除是唯一的取消手段）。
type RecordStore interface {
	ListProducts() ([]models.ProductRecord, error)
	GetProduct(id string) (*models.ProductRecord, error)
	UpdateProduct(p *models.ProductRecord) error
}

// NotificationSink 接收按记录 id 归属的失败事件，供前端展示
type NotificationSink interface {
	Notify(productID, message string)
}

// ImageStore 合成图的对象存储（可选依赖，nil 则跳过上传）
type ImageStore interface {
	UploadImage(objectName, imageB64 string) (string, error)
}

// Orchestrator 管线编排器：定时扫描所有在途记录，每轮每条记录至多推进一个阶段。
// 记录状态永远以仓库为准，跨 tick 不缓存。
type Orchestrator struct {
	store      RecordStore
	gen        GenerationClient
	sink       NotificationSink
	images     ImageStore
	interval   time.Duration
	timeout    time.Duration
	maxRetries int
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(store RecordStore, gen GenerationClient, sink NotificationSink, images ImageStore) *Orchestrator {
	return &Orchestrator{
		store:      store,
		gen:        gen,
		sink:       sink,
		images:     images,
		interval:   DefaultTickInterval,
		timeout:    DefaultRecordTimeout,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		inflight:   make(map[string]bool),
	}
}

// NewOrchestratorFromConfig 用全局配置里的管线参数构建
func NewOrchestratorFromConfig(store RecordStore, gen GenerationClient, sink NotificationSink, images ImageStore) *Orchestrator {
	o := NewOrchestrator(store, gen, sink, images)
	cfg := config.AppConfig.Pipeline
	o.interval = time.Duration(cfg.TickIntervalMs) * time.Millisecond
	o.timeout = time.Duration(cfg.RecordTimeoutMin) * time.Minute
	o.maxRetries = cfg.MaxRetries
	return o
}

// Start 启动定时扫描循环
func (o *Orchestrator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()
		log.Printf("管线编排器启动，扫描间隔 %v", o.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.Tick(ctx)
			}
		}
	}()
}

// Stop 停止扫描循环，等待当前 tick 结束
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Tick 扫描一轮：逐条推进在途记录。单条记录出错不影响其余记录。
func (o *Orchestrator) Tick(ctx context.Context) {
	records, err := o.store.ListProducts()
	if err != nil {
		log.Printf("扫描记录失败: %v", err)
		return
	}
	for i := range records {
		rec := records[i]
		if rec.IsTerminal() || !rec.IsActive() {
			continue
		}
		o.advance(ctx, &rec)
	}
}

// AdvanceByID 队列触发的即时推进：新建/重试的记录不必等下一轮扫描。
// 与 Tick 走同一条受守卫的推进路径。
func (o *Orchestrator) AdvanceByID(ctx context.Context, productID string) {
	rec, err := o.store.GetProduct(productID)
	if err != nil {
		// 记录不存在（可能刚被删除）按取消处理；其余错误要留痕
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("读取记录 %s 失败: %v", productID, err)
		}
		return
	}
	if rec == nil {
		return
	}
	if rec.IsTerminal() {
		return
	}
	o.advance(ctx, rec)
}

// advance 推进单条记录一个阶段。in-flight 守卫保证同一记录不会被
// 重叠的 tick（或队列触发）同时执行两个阶段。
func (o *Orchestrator) advance(ctx context.Context, rec *models.ProductRecord) {
	if !o.acquire(rec.ID) {
		return
	}
	defer o.release(rec.ID)

	// 全局超时：从创建时刻起算，与当前处于哪个阶段无关。
	// 超时同样算一次失败尝试，否则超时的记录可以无限重试
	if o.now().Sub(rec.CreatedAt) > o.timeout {
		rec.OverallStatus = models.OverallStatusExited
		rec.ErrorLog = "System Timeout"
		rec.MarkActiveStagesFailed()
		rec.RetryCount++
		o.persist(rec)
		o.sink.Notify(rec.ID, "System Timeout")
		return
	}

	// 重试上限：到达即强制退出，不管阶段进展到哪
	if rec.RetryCount >= o.maxRetries {
		rec.OverallStatus = models.OverallStatusExited
		rec.ErrorLog = "Max retries exceeded"
		o.persist(rec)
		o.sink.Notify(rec.ID, "Max retries exceeded")
		return
	}

	stage, ok := rec.NextStage()
	if !ok {
		// 本轮无可执行阶段（正在执行中，或等待前置阶段）
		return
	}

	// 背面图缺省：背面阶段直接短路完成，不调用模型
	if stage == models.StageBack && rec.RawBack == "" {
		rec.BackStatus = models.StageStatusCompleted
		rec.OverallStatus = models.OverallStatusFinished
		rec.ErrorLog = "全部生成完成（无背面图，已跳过背面合成）"
		o.persist(rec)
		return
	}

	o.runStage(ctx, rec, stage)
}

// runStage 执行一个阶段：先重读仓库确认阶段仍是 pending（写时校验，
// 防止重叠执行），标记 updating 并立即落库，再调用执行器。
func (o *Orchestrator) runStage(ctx context.Context, rec *models.ProductRecord, stage string) {
	fresh, err := o.store.GetProduct(rec.ID)
	if err != nil {
		// 已删除的记录静默结束，其余错误留痕
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("读取记录 %s 失败: %v", rec.ID, err)
		}
		return
	}
	if fresh == nil {
		return
	}
	if fresh.IsTerminal() || fresh.StageStatusOf(stage) != models.StageStatusPending {
		return
	}

	fresh.SetStageStatus(stage, models.StageStatusUpdating)
	fresh.ErrorLog = stageProgressMessage(stage)
	if err := o.persist(fresh); err != nil {
		log.Printf("标记阶段 %s updating 失败: %v", stage, err)
		return
	}

	res, err := o.executeStage(ctx, fresh, stage)
	if err != nil {
		o.failStage(fresh, stage, err)
		return
	}

	o.applyResult(fresh, stage, res)
	fresh.SetStageStatus(stage, models.StageStatusCompleted)
	if stage == models.StageBack {
		// 最后一个阶段完成即整体完成
		fresh.OverallStatus = models.OverallStatusFinished
		fresh.ErrorLog = "全部生成完成"
	} else {
		fresh.ErrorLog = stageDoneMessage(stage)
	}
	if err := o.persist(fresh); err != nil {
		log.Printf("写回阶段 %s 结果失败: %v", stage, err)
	}
}

// executeStage 调用阶段执行器，panic 一律转成错误（单条记录隔离）
func (o *Orchestrator) executeStage(ctx context.Context, rec *models.ProductRecord, stage string) (res *StageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panic: %v", stage, r)
		}
	}()

	switch stage {
	case models.StageAnalysis:
		return RunAnalysisStage(ctx, o.gen, rec)
	case models.StageSeo:
		return RunSeoStage(ctx, o.gen, rec)
	case models.StageFront:
		return RunFrontStage(ctx, o.gen, rec)
	case models.StageBack:
		return RunBackStage(ctx, o.gen, rec)
	}
	return nil, fmt.Errorf("unknown stage: %s", stage)
}

// applyResult 把阶段产出写回记录；合成图顺带上传对象存储，
// 上传失败只记日志（base64 结果已在记录里，不算阶段失败）
func (o *Orchestrator) applyResult(rec *models.ProductRecord, stage string, res *StageResult) {
	switch stage {
	case models.StageAnalysis:
		rec.FrontAnalyse = res.FrontAnalyse
		rec.BackAnalyse = res.BackAnalyse
	case models.StageSeo:
		rec.ProductTitle = res.ProductTitle
		rec.ProductDesc = res.ProductDesc
	case models.StageFront:
		rec.ModelFront = res.ModelFront
		if o.images != nil && res.ModelFront != "" {
			url, err := o.images.UploadImage(fmt.Sprintf("products/%s/model_front.png", rec.ID), res.ModelFront)
			if err != nil {
				log.Printf("正面图上传失败: %v", err)
			} else {
				rec.ModelFrontUrl = url
			}
		}
	case models.StageBack:
		rec.ModelBack = res.ModelBack
		if o.images != nil && res.ModelBack != "" {
			url, err := o.images.UploadImage(fmt.Sprintf("products/%s/model_back.png", rec.ID), res.ModelBack)
			if err != nil {
				log.Printf("背面图上传失败: %v", err)
			} else {
				rec.ModelBackUrl = url
			}
		}
	}
}

// failStage 阶段失败 -> 记录退出。本设计不做阶段内自动重试，
// 只能由用户手动重试（fail-fast）。
func (o *Orchestrator) failStage(rec *models.ProductRecord, stage string, stageErr error) {
	log.Printf("记录 %s 阶段 %s 失败: %v", rec.ID, stage, stageErr)
	rec.SetStageStatus(stage, models.StageStatusFailed)
	rec.OverallStatus = models.OverallStatusExited
	rec.ErrorLog = stageErr.Error()
	rec.RetryCount++
	if err := o.persist(rec); err != nil {
		log.Printf("写回失败状态出错: %v", err)
	}
	o.sink.Notify(rec.ID, fmt.Sprintf("阶段 %s 失败: %v", stage, stageErr))
}

func (o *Orchestrator) persist(rec *models.ProductRecord) error {
	return o.store.UpdateProduct(rec)
}

func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[id] {
		return false
	}
	o.inflight[id] = true
	return true
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, id)
}

func stageProgressMessage(stage string) string {
	switch stage {
	case models.StageAnalysis:
		return "正在分析服装图片..."
	case models.StageSeo:
		return "正在生成商品文案..."
	case models.StageFront:
		return "正在合成正面模特图..."
	case models.StageBack:
		return "正在合成背面模特图..."
	}
	return "处理中..."
}

func stageDoneMessage(stage string) string {
	switch stage {
	case models.StageAnalysis:
		return "图片分析完成"
	case models.StageSeo:
		return "商品文案生成完成"
	case models.StageFront:
		return "正面模特图生成完成"
	}
	return "阶段完成"
}
