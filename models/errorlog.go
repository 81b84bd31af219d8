package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrorLog 管线失败事件，面向用户展示（支持复制/删除）
type ErrorLog struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProductID string    `gorm:"index" json:"productId"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ErrorLog) TableName() string {
	return "error_log"
}

func CreateErrorLog(db *gorm.DB, productID, message string) error {
	entry := ErrorLog{
		ID:        uuid.NewString(),
		ProductID: productID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	return db.Create(&entry).Error
}

func ListErrorLogs(db *gorm.DB) ([]ErrorLog, error) {
	var logs []ErrorLog
	if err := db.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func GetErrorLogByID(db *gorm.DB, id string) (*ErrorLog, error) {
	var entry ErrorLog
	if err := db.First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func DeleteErrorLogByID(db *gorm.DB, id string) error {
	return db.Delete(&ErrorLog{}, "id = ?", id).Error
}

func ClearErrorLogs(db *gorm.DB) error {
	return db.Where("1 = 1").Delete(&ErrorLog{}).Error
}
