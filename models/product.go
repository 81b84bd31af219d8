// ...existing code...
package models

import (
	"time"
)

// 记录整体状态（粗粒度生命周期）
const (
	// running: 管线正在推进该记录
	OverallStatusRunning = "running"
	// finished: 全部阶段完成
	OverallStatusFinished = "finished"
	// exited: 因失败/超时/重试上限退出，等待用户重试或删除
	OverallStatusExited = "exited"
)

// 单阶段状态，四个阶段各自独立维护
const (
	StageStatusPending   = "pending"
	StageStatusUpdating  = "updating"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

// 四个阶段，严格按此顺序执行：分析 -> 文案 -> 正面合成 -> 背面合成
const (
	StageAnalysis = "analysis"
	StageSeo      = "seo"
	StageFront    = "front"
	StageBack     = "back"
)

// ProductRecord 一条商品生成任务及其累计状态
type ProductRecord struct {
	ID string `gorm:"primaryKey;type:varchar(64)" json:"id"`

	// 用户上传的原图（base64），背面图可为空
	RawFront string `gorm:"type:longtext" json:"rawFront"`
	RawBack  string `gorm:"type:longtext" json:"rawBack"`

	// 商品属性，用于构建生成提示词
	Description string `gorm:"type:text" json:"description"`
	Gender      string `json:"gender"`
	AgeRange    string `json:"ageRange"`
	BodyType    string `json:"bodyType"`
	Fit         string `json:"fit"`
	Background  string `json:"background"`
	Accessory   string `json:"accessory"`

	OverallStatus  string `json:"overallStatus"`
	AnalysisStatus string `json:"analysisStatus"`
	SeoStatus      string `json:"seoStatus"`
	FrontStatus    string `json:"frontStatus"`
	BackStatus     string `json:"backStatus"`

	// 各阶段产物
	FrontAnalyse string `gorm:"type:text" json:"frontAnalyse"`
	BackAnalyse  string `gorm:"type:text" json:"backAnalyse"`
	ProductTitle string `json:"productTitle"`
	ProductDesc  string `gorm:"type:text" json:"productDesc"`
	ModelFront   string `gorm:"type:longtext" json:"modelFront"`
	ModelBack    string `gorm:"type:longtext" json:"modelBack"`

	// 合成图上传到 MinIO 后的访问地址
	ModelFrontUrl string `json:"modelFrontUrl"`
	ModelBackUrl  string `json:"modelBackUrl"`

	RetryCount int `json:"retryCount"`
	// 当前状态行（进度或错误），每次阶段变更都会覆盖，不做累计
	ErrorLog string `gorm:"type:text" json:"errorLog"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ProductRecord) TableName() string {
	return "product_record"
}

// normalizeStage 空串视为 pending（记录创建时阶段字段可以缺省）
func normalizeStage(s string) string {
	if s == "" {
		return StageStatusPending
	}
	return s
}

// StageStatusOf 按阶段名读取状态
func (p *ProductRecord) StageStatusOf(stage string) string {
	switch stage {
	case StageAnalysis:
		return normalizeStage(p.AnalysisStatus)
	case StageSeo:
		return normalizeStage(p.SeoStatus)
	case StageFront:
		return normalizeStage(p.FrontStatus)
	case StageBack:
		return normalizeStage(p.BackStatus)
	}
	return ""
}

// SetStageStatus 按阶段名写入状态
func (p *ProductRecord) SetStageStatus(stage, status string) {
	switch stage {
	case StageAnalysis:
		p.AnalysisStatus = status
	case StageSeo:
		p.SeoStatus = status
	case StageFront:
		p.FrontStatus = status
	case StageBack:
		p.BackStatus = status
	}
}

// IsTerminal finished/exited 为终态，不再执行任何阶段
func (p *ProductRecord) IsTerminal() bool {
	return p.OverallStatus == OverallStatusFinished || p.OverallStatus == OverallStatusExited
}

// IsActive 记录是否仍受管线调度
func (p *ProductRecord) IsActive() bool {
	if p.OverallStatus == OverallStatusRunning {
		return true
	}
	for _, stage := range []string{StageAnalysis, StageSeo, StageFront, StageBack} {
		s := p.StageStatusOf(stage)
		if s == StageStatusPending || s == StageStatusUpdating {
			return true
		}
	}
	return false
}

// NextStage 返回本轮可执行的下一个阶段；自上而下第一个命中的生效。
// 没有可执行阶段时（等待外部依赖或已在执行中）返回 false。
func (p *ProductRecord) NextStage() (string, bool) {
	switch {
	case p.StageStatusOf(StageAnalysis) == StageStatusPending:
		return StageAnalysis, true
	case p.StageStatusOf(StageSeo) == StageStatusPending && p.AnalysisStatus == StageStatusCompleted:
		return StageSeo, true
	case p.StageStatusOf(StageFront) == StageStatusPending && p.SeoStatus == StageStatusCompleted:
		return StageFront, true
	case p.StageStatusOf(StageBack) == StageStatusPending && p.FrontStatus == StageStatusCompleted:
		return StageBack, true
	}
	return "", false
}

// MarkActiveStagesFailed 超时退出时调用：pending/updating 的阶段一律置为 failed，
// 已经 completed/failed 的阶段保持原值
func (p *ProductRecord) MarkActiveStagesFailed() {
	for _, stage := range []string{StageAnalysis, StageSeo, StageFront, StageBack} {
		s := p.StageStatusOf(stage)
		if s == StageStatusPending || s == StageStatusUpdating {
			p.SetStageStatus(stage, StageStatusFailed)
		}
	}
}

// ResetForRetry 用户手动重试：failed/updating 的阶段回到 pending，整体回到 running
func (p *ProductRecord) ResetForRetry() {
	for _, stage := range []string{StageAnalysis, StageSeo, StageFront, StageBack} {
		s := p.StageStatusOf(stage)
		if s == StageStatusFailed || s == StageStatusUpdating {
			p.SetStageStatus(stage, StageStatusPending)
		}
	}
	p.OverallStatus = OverallStatusRunning
	p.ErrorLog = "重试中，任务重新排队"
}
