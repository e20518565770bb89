package database

import (
	"fmt"
	"log"
	"time"

	"ultimate-fantasy/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool settings. The one hour lifetime keeps pooled
	// connections ahead of MySQL's wait_timeout.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialized successfully")
	return db, nil
}

// Migrate keeps the schema in sync with the model set.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Season{},
		&models.Week{},
		&models.Club{},
		&models.Player{},
		&models.Game{},
		&models.PlayerGameStat{},
		&models.FantasyTeam{},
		&models.RosterSnapshot{},
		&models.RosterEntry{},
		&models.Transfer{},
		&models.WeekScore{},
		&models.PriceWindow{},
		&models.PlayerPrice{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
