package models

import (
	"log"

	"gorm.io/gorm"
)

// Store gorm 版记录仓库，实现 service 侧的编排依赖接口
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) ListProducts() ([]ProductRecord, error) {
	return ListProducts(s.DB)
}

func (s *Store) GetProduct(id string) (*ProductRecord, error) {
	return GetProductByID(s.DB, id)
}

func (s *Store) UpdateProduct(p *ProductRecord) error {
	return UpdateProductByID(s.DB, p)
}

// DBSink 失败事件落库，供前端错误列表展示
type DBSink struct {
	DB *gorm.DB
}

func (s *DBSink) Notify(productID, message string) {
	if err := CreateErrorLog(s.DB, productID, message); err != nil {
		// 通知失败只记日志，不影响管线本身
		log.Printf("写入错误日志失败: %v", err)
	}
}
