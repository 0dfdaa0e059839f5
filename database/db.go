package database

import (
	"fmt"
	"time"

	"guesthouse-booking/config"
	"guesthouse-booking/logger"
	adminModel "guesthouse-booking/models/admin"
	bookingModel "guesthouse-booking/models/booking"
	logModel "guesthouse-booking/models/log"
	roomModel "guesthouse-booking/models/room"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// InitDB opens the PostgreSQL connection and brings the schema up to date
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg.DSN(), cfg.AppEnv != "production")
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects without migrating
func Open(dsn string, verbose bool) (*gorm.DB, error) {
	level := gormLogger.Warn
	if verbose {
		level = gormLogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(level),
	})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Success("Successfully connected to the database")
	return db, nil
}

// Migrate runs the staged auto migration, constraints and indexes
func Migrate(db *gorm.DB) error {
	if err := autoMigrate(db); err != nil {
		logger.Error("Failed to run auto migration", err)
		return err
	}
	logger.Success("Auto migration completed successfully")

	if err := createConstraints(db); err != nil {
		logger.Error("Failed to create constraints", err)
		return err
	}
	if err := createIndexes(db); err != nil {
		logger.Error("Failed to create indexes", err)
		return err
	}
	logger.Success("All indexes created successfully")
	return nil
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// autoMigrate runs auto migration in dependency order
func autoMigrate(db *gorm.DB) error {
	stages := [][]interface{}{
		// Stage 1: catalogue
		{&roomModel.Room{}, &roomModel.RoomImage{}},
		// Stage 2: bookings and their audit trail
		{&bookingModel.Booking{}, &bookingModel.BookingStatusEvent{}},
		// Stage 3: back office and webhook logging
		{&adminModel.Admin{}, &logModel.Log{}},
	}

	for _, models := range stages {
		for _, model := range models {
			if err := db.AutoMigrate(model); err != nil {
				return fmt.Errorf("failed to migrate %T: %w", model, err)
			}
		}
	}
	return nil
}

// createIndexes creates additional indexes the booking queries rely on
func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_bookings_room_status_range", "CREATE INDEX IF NOT EXISTS idx_bookings_room_status_range ON bookings(room_id, status, check_in, check_out)"},
		{"idx_bookings_payment_reference", "CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_payment_reference ON bookings(payment_reference) WHERE payment_reference IS NOT NULL"},
		{"idx_bookings_flagged", "CREATE INDEX IF NOT EXISTS idx_bookings_flagged ON bookings(needs_reconciliation) WHERE needs_reconciliation"},
		{"idx_room_images_room_position", "CREATE INDEX IF NOT EXISTS idx_room_images_room_position ON room_images(room_id, position)"},
		{"idx_logs_created_at", "CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)"},
	}
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// createConstraints adds table constraints AutoMigrate cannot express
func createConstraints(db *gorm.DB) error {
	constraints := []struct {
		name     string
		sql      string
		required bool
	}{
		{
			name:     "ck_bookings_range",
			sql:      `ALTER TABLE bookings ADD CONSTRAINT ck_bookings_range CHECK (check_in < check_out)`,
			required: true,
		},
		{
			// last line of defence: two PAID bookings may never overlap on one room
			name: "ex_bookings_paid_overlap",
			sql: `ALTER TABLE bookings ADD CONSTRAINT ex_bookings_paid_overlap
				  EXCLUDE USING gist (room_id WITH =, tstzrange(check_in, check_out, '[)') WITH &&)
				  WHERE (status = 'PAID')`,
		},
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		logger.Warning(fmt.Sprintf("btree_gist is unavailable, skipping exclusion constraint: %v", err))
		constraints = constraints[:1]
	}

	for _, constraint := range constraints {
		var exists bool
		checkSQL := `
			SELECT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = $1
			)
		`
		if err := db.Raw(checkSQL, constraint.name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", constraint.name, err)
		}
		if exists {
			logger.Debug(fmt.Sprintf("Constraint already exists: %s", constraint.name))
			continue
		}
		if err := db.Exec(constraint.sql).Error; err != nil {
			if constraint.required {
				return fmt.Errorf("failed to create constraint %s: %w", constraint.name, err)
			}
			logger.Warning(fmt.Sprintf("Failed to create constraint: %s - Error: %v", constraint.name, err))
			continue
		}
		logger.Success(fmt.Sprintf("Successfully created constraint: %s", constraint.name))
	}
	return nil
}
