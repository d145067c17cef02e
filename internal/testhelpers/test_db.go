package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"mindspark/realtime/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	}
	migrateSchema = func(db *gorm.DB) error { return db.AutoMigrate(models.All()...) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := migrateSchema(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// DropTable removes the table behind model to force repository errors.
func DropTable(t *testing.T, db *gorm.DB, model any) {
	t.Helper()
	if err := db.Migrator().DropTable(model); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
}

// SeedProfile inserts a profile with the given id and username.
func SeedProfile(t *testing.T, db *gorm.DB, id, username string) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: id, Username: username, Email: username + "@example.com", Level: 1}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	return p
}

// SeedRoom inserts a chat room. Inactive rooms are flipped after insert
// because gorm skips zero-valued fields that carry a default.
func SeedRoom(t *testing.T, db *gorm.DB, id, name string, active bool) *models.ChatRoom {
	t.Helper()
	room := &models.ChatRoom{ID: id, Name: name, IsActive: true}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}
	if !active {
		if err := db.Model(room).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate room: %v", err)
		}
	}
	return room
}
