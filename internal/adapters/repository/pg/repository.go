package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/ports"
)

// reservationRow stores one reservation; ID order is the per-host order.
type reservationRow struct {
	ID       uint   `gorm:"primaryKey"`
	Hostname string `gorm:"uniqueIndex:idx_reservation_host_user;not null"`
	Username string `gorm:"uniqueIndex:idx_reservation_host_user;not null"`
	Metadata string
}

func (reservationRow) TableName() string {
	return "reservations"
}

func (row reservationRow) toDomain() (domain.Reservation, error) {
	r := domain.Reservation{Hostname: row.Hostname, Username: row.Username}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &r.Metadata); err != nil {
			return r, fmt.Errorf("decode metadata for %s/%s: %w", row.Hostname, row.Username, err)
		}
	}
	return r, nil
}

type Repository struct {
	db *gorm.DB
}

var _ ports.InventoryManager = (*Repository)(nil)

// Open connects to PostgreSQL.
func Open(dsn string) (*Repository, error) {
	return NewRepository(postgres.Open(dsn))
}

// NewRepository migrates the schema on any gorm dialector.
func NewRepository(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.System{}, &reservationRow{}); err != nil {
		return nil, fmt.Errorf("migrate inventory schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// System methods
func (r *Repository) ListSystems(ctx context.Context) ([]domain.System, error) {
	var systems []domain.System
	if err := r.db.WithContext(ctx).Order("hostname").Find(&systems).Error; err != nil {
		return nil, err
	}
	return systems, nil
}

func (r *Repository) GetSystem(ctx context.Context, hostname string) (*domain.System, bool, error) {
	var system domain.System
	err := r.db.WithContext(ctx).First(&system, "hostname = ?", hostname).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &system, true, nil
}

// AddSystem inserts the host, or overwrites its load when a concurrent report
// got there first.
func (r *Repository) AddSystem(ctx context.Context, hostname string, loadAverage float64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hostname"}},
			DoUpdates: clause.AssignmentColumns([]string{"load_average"}),
		}).
		Create(&domain.System{Hostname: hostname, LoadAverage: loadAverage}).Error
}

func (r *Repository) UpdateCPUStatus(ctx context.Context, hostname string, loadAverage float64) error {
	return r.db.WithContext(ctx).Save(&domain.System{Hostname: hostname, LoadAverage: loadAverage}).Error
}

func (r *Repository) ResetSystems(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.System{}).Error
}

// Reservation methods
func (r *Repository) GetReservation(ctx context.Context, hostname string) ([]domain.Reservation, bool, error) {
	var rows []reservationRow
	if err := r.db.WithContext(ctx).Where("hostname = ?", hostname).Order("id").Find(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	list, err := toDomainList(rows)
	if err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (r *Repository) AddReservation(ctx context.Context, hostname string, res domain.Reservation) error {
	return r.UpdateReservation(ctx, hostname, res)
}

// UpdateReservation replaces the host's entry for the same username in place
// or appends a new one.
func (r *Repository) UpdateReservation(ctx context.Context, hostname string, res domain.Reservation) error {
	var metadata string
	if len(res.Metadata) > 0 {
		b, err := json.Marshal(res.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(b)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row reservationRow
		err := tx.Where("hostname = ? AND username = ?", hostname, res.Username).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&reservationRow{Hostname: hostname, Username: res.Username, Metadata: metadata}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&row).Update("metadata", metadata).Error
	})
}

func (r *Repository) ListReservations(ctx context.Context) (map[string][]domain.Reservation, error) {
	var rows []reservationRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]domain.Reservation)
	for _, row := range rows {
		res, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[row.Hostname] = append(out[row.Hostname], res)
	}
	return out, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying gorm DB instance
func (r *Repository) DB() *gorm.DB {
	return r.db
}

func toDomainList(rows []reservationRow) ([]domain.Reservation, error) {
	list := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		res, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		list = append(list, res)
	}
	return list, nil
}
