package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// DefaultListLimit caps ListReports when no limit is given.
const DefaultListLimit = 50

// SQLiteAdapter implements ports.ReportStore using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// ReportModel is the GORM model for an emitted report.
type ReportModel struct {
	ID             string `gorm:"primaryKey"`
	Kind           string
	Reason         string
	CreatedAt      time.Time `gorm:"index"`
	CurrentChannel int
	Dropped        int64
	Total          int64

	Channels []ChannelStatsModel `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

// ChannelStatsModel stores one channel slot of a report. Slot 0 is the
// aggregate.
type ChannelStatsModel struct {
	ID       uint   `gorm:"primaryKey"`
	ReportID string `gorm:"index"`
	Channel  int

	Total  int64
	Len12  int64
	Len60  int64
	Len128 int64
	Other  int64

	Management int64
	Control    int64
	Data       int64
	Reserved   int64

	Assoc    int64
	Probe    int64
	Beacon   int64
	Disassoc int64

	TooShort           int64
	BadProtocolVersion int64
	BadElementID       int64
	TruncatedElement   int64
	OversizedElement   int64
	Recovered          int64

	AMPDU int64
	HT    int64

	SSIDs string // JSON encoded []string
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// ":memory:" databases are per connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}

	// Auto Migrate
	if err := db.AutoMigrate(&ReportModel{}, &ChannelStatsModel{}); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_reports_kind ON report_models(kind)")

	return &SQLiteAdapter{db: db}, nil
}

// Publish archives r. It makes the adapter a report sink.
func (a *SQLiteAdapter) Publish(ctx context.Context, r domain.Report) error {
	return a.SaveReport(ctx, r)
}

// SaveReport stores a report and its channel slots in one transaction.
func (a *SQLiteAdapter) SaveReport(ctx context.Context, r domain.Report) error {
	if r.ID == "" {
		return errors.New("report without id")
	}
	model := toModel(r)
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&model).Error
	})
}

// GetReport retrieves a report by ID.
func (a *SQLiteAdapter) GetReport(ctx context.Context, id string) (domain.Report, error) {
	var model ReportModel
	err := a.db.WithContext(ctx).
		Preload("Channels", func(db *gorm.DB) *gorm.DB { return db.Order("channel") }).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Report{}, fmt.Errorf("report %s: %w", id, domain.ErrReportNotFound)
	}
	if err != nil {
		return domain.Report{}, err
	}
	return toDomain(model), nil
}

// ListReports returns the newest reports first, without channel slots.
func (a *SQLiteAdapter) ListReports(ctx context.Context, limit int) ([]domain.ReportSummaryInfo, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var models []ReportModel
	if err := a.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.ReportSummaryInfo, len(models))
	for i, m := range models {
		out[i] = toSummary(m)
	}
	return out, nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.ReportStore = (*SQLiteAdapter)(nil)
