package models

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB 内存 sqlite，每个测试独立一份
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&ProductRecord{}, &ErrorLog{}, &ModelUsage{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func TestGetErrorLogByID(t *testing.T) {
	db := openTestDB(t)

	if err := CreateErrorLog(db, "p-1", "阶段 analysis 失败"); err != nil {
		t.Fatalf("CreateErrorLog: %v", err)
	}
	logs, err := ListErrorLogs(db)
	if err != nil || len(logs) != 1 {
		t.Fatalf("ListErrorLogs = %v, %v", logs, err)
	}

	got, err := GetErrorLogByID(db, logs[0].ID)
	if err != nil {
		t.Fatalf("GetErrorLogByID: %v", err)
	}
	if got.ProductID != "p-1" || got.Message != "阶段 analysis 失败" {
		t.Fatalf("entry = %+v", got)
	}

	if _, err := GetErrorLogByID(db, "no-such-id"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("missing id err = %v, want ErrRecordNotFound", err)
	}
}

func TestModelUsageGetAndDeleteByID(t *testing.T) {
	db := openTestDB(t)

	if err := RecordModelUsage(db, "gen-pro", 0.05); err != nil {
		t.Fatalf("RecordModelUsage: %v", err)
	}
	if err := RecordModelUsage(db, "gen-pro", 0.05); err != nil {
		t.Fatalf("RecordModelUsage: %v", err)
	}
	if err := RecordModelUsage(db, "gen-lite", 0.01); err != nil {
		t.Fatalf("RecordModelUsage: %v", err)
	}

	usage, err := GetModelUsageByID(db, "gen-pro")
	if err != nil {
		t.Fatalf("GetModelUsageByID: %v", err)
	}
	if usage.TotalRequests != 2 || usage.TotalCost != 0.1 {
		t.Fatalf("usage = %+v", usage)
	}
	if len(usage.Daily) != 1 {
		t.Fatalf("daily days = %d, want 1", len(usage.Daily))
	}

	if err := DeleteModelUsageByID(db, "gen-pro"); err != nil {
		t.Fatalf("DeleteModelUsageByID: %v", err)
	}
	if _, err := GetModelUsageByID(db, "gen-pro"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("deleted id err = %v, want ErrRecordNotFound", err)
	}

	// 只删指定模型，其余不受影响
	usages, err := ListModelUsage(db)
	if err != nil || len(usages) != 1 || usages[0].ModelID != "gen-lite" {
		t.Fatalf("ListModelUsage = %+v, %v", usages, err)
	}
}

// 记录在执行期间被删除时，写回必须是静默 no-op，不能把记录复活
func TestUpdateProductAfterDeleteIsNoOp(t *testing.T) {
	db := openTestDB(t)

	p := &ProductRecord{
		ID:             "p-del",
		RawFront:       "front-b64",
		OverallStatus:  OverallStatusRunning,
		AnalysisStatus: StageStatusPending,
		SeoStatus:      StageStatusPending,
		FrontStatus:    StageStatusPending,
		BackStatus:     StageStatusPending,
	}
	if err := CreateProduct(db, p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if err := DeleteProductByID(db, p.ID); err != nil {
		t.Fatalf("DeleteProductByID: %v", err)
	}

	p.AnalysisStatus = StageStatusCompleted
	if err := UpdateProductByID(db, p); err != nil {
		t.Fatalf("UpdateProductByID after delete: %v", err)
	}
	if _, err := GetProductByID(db, p.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("deleted record err = %v, want ErrRecordNotFound", err)
	}
}
