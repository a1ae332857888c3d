package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iziplay/isbn-api/pkg/isbn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DB is the GORM database instance
var DB *gorm.DB

// DSN builds the postgres connection string from the environment.
func DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DATABASE"),
		os.Getenv("POSTGRES_PORT"),
	)
}

// Open connects to postgres, configures the pool and migrates the schema.
func Open(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(
			log.Default(),
			logger.Config{
				SlowThreshold:             10 * time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: "isbn_",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connection established")

	return AutoMigrate()
}

// AutoMigrate runs automatic migration for all models
func AutoMigrate() error {
	log.Println("Running auto migration...")

	// Enable pg_trgm extension for trigram-based ILIKE indexes
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		return fmt.Errorf("failed to create pg_trgm extension: %w", err)
	}

	err := DB.AutoMigrate(
		&RangeGroup{},
		&RangeRule{},
		&Synchronization{},
	)

	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	log.Println("Auto migration completed successfully")
	return nil
}

// SaveRangeTable replaces the stored range table with table and records the
// synchronization, in one transaction.
func SaveRangeTable(ctx context.Context, table *isbn.RangeTable, warnings []string) (*Synchronization, error) {
	groups := groupsToModels(table)
	meta := table.Metadata()

	sync := &Synchronization{
		Date:        time.Now(),
		Source:      meta.Source,
		Serial:      meta.Serial,
		MessageDate: meta.Date,
		Groups:      table.Len(),
		Rules:       table.RuleCount(),
		Warnings:    warnings,
		Complete:    true,
	}

	err := DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&RangeRule{}).Error; err != nil {
			return fmt.Errorf("failed to clear rules: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&RangeGroup{}).Error; err != nil {
			return fmt.Errorf("failed to clear groups: %w", err)
		}
		if len(groups) > 0 {
			// rules are created through the association
			if err := tx.CreateInBatches(groups, 200).Error; err != nil {
				return fmt.Errorf("failed to insert groups: %w", err)
			}
		}
		if err := tx.Create(sync).Error; err != nil {
			return fmt.Errorf("failed to record synchronization: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sync, nil
}

// LoadRangeTable rebuilds the range table from the database. It returns
// gorm.ErrRecordNotFound when no complete synchronization exists yet.
func LoadRangeTable(ctx context.Context) (*isbn.RangeTable, error) {
	var last Synchronization
	if err := DB.WithContext(ctx).Where("complete = ?", true).Order("date DESC").First(&last).Error; err != nil {
		return nil, err
	}

	var groups []RangeGroup
	if err := DB.WithContext(ctx).
		Preload("Rules", orderByPosition).
		Order("position ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	return modelsToTable(isbn.Metadata{
		Source: last.Source,
		Serial: last.Serial,
		Date:   last.MessageDate,
	}, groups)
}

func groupsToModels(table *isbn.RangeTable) []RangeGroup {
	groups := table.Groups()
	out := make([]RangeGroup, len(groups))
	for i, g := range groups {
		rules := make([]RangeRule, len(g.Rules))
		for j, r := range g.Rules {
			rules[j] = RangeRule{
				Group:    g.Prefix,
				Position: j,
				Low:      r.Low,
				High:     r.High,
				Length:   r.Length,
			}
		}
		out[i] = RangeGroup{
			Prefix:   g.Prefix,
			EAN:      g.Prefix[:3],
			Position: i,
			Agency:   g.Agency,
			Rules:    rules,
		}
	}
	return out
}

func modelsToTable(meta isbn.Metadata, models []RangeGroup) (*isbn.RangeTable, error) {
	groups := make([]isbn.Group, len(models))
	for i, m := range models {
		rules := make([]isbn.Rule, len(m.Rules))
		for j, r := range m.Rules {
			rules[j] = isbn.Rule{Low: r.Low, High: r.High, Length: r.Length}
		}
		groups[i] = isbn.Group{Prefix: m.Prefix, Agency: m.Agency, Rules: rules}
	}
	return isbn.NewRangeTable(meta, groups)
}
