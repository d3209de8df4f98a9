package services

import (
	"fmt"
	"testing"

	"mission-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection: the in-memory database lives as long as it does
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBadge(t *testing.T, db *gorm.DB, code string) *models.BadgeType {
	t.Helper()
	bt := &models.BadgeType{Code: code, Name: "Badge " + code, Rarity: "common"}
	if err := db.Create(bt).Error; err != nil {
		t.Fatalf("seed badge: %v", err)
	}
	return bt
}

type missionOpt func(*models.Mission)

func withBadge(id string) missionOpt {
	return func(m *models.Mission) { m.BadgeTypeID = &id }
}

func withFinalStage(s models.ValidationStage) missionOpt {
	return func(m *models.Mission) { m.FinalStage = s }
}

func seedMission(t *testing.T, db *gorm.DB, advertiserID string, opts ...missionOpt) *models.Mission {
	t.Helper()
	m := &models.Mission{
		AdvertiserID:   advertiserID,
		Title:          "Poste uma foto com o produto",
		Type:           models.MissionTypeText,
		RewardRifas:    10,
		RewardCashback: 2.5,
		FinalStage:     models.StageAdvertiserSecond,
		Status:         models.MissionStatusPublished,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed mission: %v", err)
	}
	return m
}

func seedSubmission(t *testing.T, db *gorm.DB, missionID, userID string) *models.Submission {
	t.Helper()
	s := &models.Submission{
		MissionID: missionID,
		UserID:    userID,
		Payload:   map[string]interface{}{"text": "feito"},
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	return s
}

func reloadSubmission(t *testing.T, db *gorm.DB, id string) models.Submission {
	t.Helper()
	var s models.Submission
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		t.Fatalf("reload submission: %v", err)
	}
	return s
}

func balanceOf(t *testing.T, db *gorm.DB, userID string) models.UserBalance {
	t.Helper()
	var b models.UserBalance
	err := db.Where("external_user_id = ?", userID).First(&b).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		t.Fatalf("balance: %v", err)
	}
	return b
}
