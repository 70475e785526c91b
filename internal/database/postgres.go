package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/charflux/charflux/internal/log"
	"github.com/charflux/charflux/internal/types"
	"go.uber.org/zap"
)

// PostgresSource reads charcoal records from a Postgres database.
type PostgresSource struct {
	db       *gorm.DB
	sentinel float64
	logger   *zap.SugaredLogger
}

// NewPostgresSource connects to the database and pings it. Connection
// failure at startup is structural and aborts the run.
func NewPostgresSource(connString string, sentinel float64, zlogger *zap.SugaredLogger) (*PostgresSource, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("connecting to source database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging source database: %w", err)
	}

	return &PostgresSource{db: db, sentinel: sentinel, logger: zlogger}, nil
}

// Sites lists every site ordered by site ID.
func (s *PostgresSource) Sites(ctx context.Context) ([]types.Site, error) {
	var rows []SiteRow
	if err := s.db.WithContext(ctx).Order("site_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	sites := make([]types.Site, len(rows))
	for i, row := range rows {
		sites[i] = types.Site{ID: row.SiteID, Name: row.SiteName}
	}
	return sites, nil
}

// SamplesForSite returns one site's samples in index order.
func (s *PostgresSource) SamplesForSite(ctx context.Context, siteID int) ([]types.Sample, error) {
	var rows []SampleRow
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("sample_index").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying samples for site %d: %w", siteID, err)
	}
	samples := make([]types.Sample, len(rows))
	for i := range rows {
		samples[i] = rows[i].toSample(s.sentinel)
	}
	return samples, nil
}

// Close closes the underlying connection pool.
func (s *PostgresSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
