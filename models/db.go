// ...existing code...
package models

import (
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"GarmentStudio-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("打开数据库失败: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("连接数据库失败: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{
		Conn: DB,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("GORM 初始化失败: %v", err)
	}

	log.Println("数据库连接成功 (Native SQL + GORM)")

	// 自动建表（读取 doc/sql/GarmentStudio.sql）
	b, err := os.ReadFile("doc/sql/GarmentStudio.sql")
	if err != nil {
		log.Printf("读取 SQL 文件失败（跳过建表）: %v", err)
		return
	}
	sqls := strings.Split(string(b), ";")
	for _, s := range sqls {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := DB.Exec(s); err != nil {
			log.Printf("执行建表语句失败: %v ; sql: %s", err, s)
		}
	}
}

// Product CRUD

func CreateProduct(db *gorm.DB, p *ProductRecord) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return db.Create(p).Error
}

func ListProducts(db *gorm.DB) ([]ProductRecord, error) {
	var records []ProductRecord
	if err := db.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func GetProductByID(db *gorm.DB, id string) (*ProductRecord, error) {
	var p ProductRecord
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProductByID 按列更新管线可变字段。记录在执行期间被用户删除时
// 影响 0 行且不报错，等同于取消（不会把已删除的记录写回去）。
func UpdateProductByID(db *gorm.DB, p *ProductRecord) error {
	updates := map[string]interface{}{
		"overall_status":  p.OverallStatus,
		"analysis_status": p.AnalysisStatus,
		"seo_status":      p.SeoStatus,
		"front_status":    p.FrontStatus,
		"back_status":     p.BackStatus,
		"front_analyse":   p.FrontAnalyse,
		"back_analyse":    p.BackAnalyse,
		"product_title":   p.ProductTitle,
		"product_desc":    p.ProductDesc,
		"model_front":     p.ModelFront,
		"model_back":      p.ModelBack,
		"model_front_url": p.ModelFrontUrl,
		"model_back_url":  p.ModelBackUrl,
		"retry_count":     p.RetryCount,
		"error_log":       p.ErrorLog,
		"updated_at":      time.Now(),
	}
	return db.Model(&ProductRecord{}).Where("id = ?", p.ID).Updates(updates).Error
}

func DeleteProductByID(db *gorm.DB, id string) error {
	return db.Delete(&ProductRecord{}, "id = ?", id).Error
}

func ClearProducts(db *gorm.DB) error {
	return db.Where("1 = 1").Delete(&ProductRecord{}).Error
}
