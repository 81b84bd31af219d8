// ...existing code...
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UsageDay 单日用量
type UsageDay struct {
	Requests int64   `json:"requests"`
	Cost     float64 `json:"cost"`
}

// DailyUsage 按天（YYYY-MM-DD）汇总的用量历史，JSON 存库
type DailyUsage map[string]UsageDay

// 实现 driver.Valuer 接口: Go Map -> JSON String (存入数据库)
func (d DailyUsage) Value() (driver.Value, error) {
	if d == nil {
		d = DailyUsage{}
	}
	return json.Marshal(d)
}

// 实现 sql.Scanner 接口: JSON String -> Go Map (从数据库读取)
func (d *DailyUsage) Scan(value interface{}) error {
	if value == nil {
		*d = DailyUsage{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
}

// ModelUsage 每个模型的累计调用次数与费用
type ModelUsage struct {
	ModelID       string     `gorm:"primaryKey;type:varchar(64)" json:"modelId"`
	TotalRequests int64      `json:"totalRequests"`
	TotalCost     float64    `json:"totalCost"`
	Daily         DailyUsage `gorm:"type:json" json:"daily"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (ModelUsage) TableName() string {
	return "model_usage"
}

// RecordModelUsage 每次模型调用后累计一次用量（读-改-写，首次调用时插入）
func RecordModelUsage(db *gorm.DB, modelID string, cost float64) error {
	day := time.Now().Format("2006-01-02")

	var usage ModelUsage
	err := db.First(&usage, "model_id = ?", modelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		usage = ModelUsage{
			ModelID: modelID,
			Daily:   DailyUsage{},
		}
	} else if err != nil {
		return err
	}

	if usage.Daily == nil {
		usage.Daily = DailyUsage{}
	}
	usage.TotalRequests++
	usage.TotalCost += cost
	entry := usage.Daily[day]
	entry.Requests++
	entry.Cost += cost
	usage.Daily[day] = entry
	usage.UpdatedAt = time.Now()

	return db.Save(&usage).Error
}

func ListModelUsage(db *gorm.DB) ([]ModelUsage, error) {
	var usages []ModelUsage
	if err := db.Order("model_id ASC").Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

func GetModelUsageByID(db *gorm.DB, modelID string) (*ModelUsage, error) {
	var usage ModelUsage
	if err := db.First(&usage, "model_id = ?", modelID).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

func DeleteModelUsageByID(db *gorm.DB, modelID string) error {
	return db.Delete(&ModelUsage{}, "model_id = ?", modelID).Error
}

func ClearModelUsage(db *gorm.DB) error {
	return db.Where("1 = 1").Delete(&ModelUsage{}).Error
}
