package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"filament-sync/core/database"

	"gorm.io/gorm"
)

// recordRow is the pool_records table: one row per printer, reconcilable
// fields stored as a JSON object to stay driver-agnostic (mysql, sqlite).
type recordRow struct {
	PrinterID    string  `gorm:"primaryKey;column:printer_id;size:128"`
	Fields       string  `gorm:"column:fields;type:text"`
	LastModified *uint64 `gorm:"column:last_modified"`
}

func (recordRow) TableName() string {
	return "pool_records"
}

// overrideRow is the pool_overrides table.
type overrideRow struct {
	Key   string `gorm:"primaryKey;column:override_key;size:128"`
	Value string `gorm:"column:override_value;type:text"`
}

func (overrideRow) TableName() string {
	return "pool_overrides"
}

// DBStore persists the pool in a relational database through GORM.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore migrates the pool schema and returns a database-backed store.
func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&recordRow{}, &overrideRow{}); err != nil {
		return nil, fmt.Errorf("migrate pool schema: %w", err)
	}
	// AutoMigrate is best-effort on existing tables; verify the columns the
	// store reads are actually there before accepting the connection.
	if err := verifySchema(db); err != nil {
		return nil, err
	}
	return &DBStore{db: db}, nil
}

// verifySchema checks the migrated tables expose the expected columns.
func verifySchema(db *gorm.DB) error {
	required := map[string][]string{
		"pool_records":   {"printer_id", "fields", "last_modified"},
		"pool_overrides": {"override_key", "override_value"},
	}
	for table, wanted := range required {
		columns, err := database.GetTableColumns(db, table)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		present := make(map[string]struct{}, len(columns))
		for _, col := range columns {
			present[col.Field] = struct{}{}
		}
		for _, name := range wanted {
			if _, ok := present[name]; !ok {
				return fmt.Errorf("table %s is missing column %s", table, name)
			}
		}
	}
	return nil
}

// Get returns the record for a printer, or an empty record if absent.
func (s *DBStore) Get(ctx context.Context, printerID string) (Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).First(&row, "printer_id = ?", printerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EmptyRecord(), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec := EmptyRecord()
	if row.Fields != "" {
		if err := json.Unmarshal([]byte(row.Fields), &rec.Fields); err != nil {
			return Record{}, fmt.Errorf("corrupt pool record for %s: %w", printerID, err)
		}
	}
	rec.LastModified = row.LastModified
	return rec, nil
}

// Put replaces the record for a printer.
func (s *DBStore) Put(ctx context.Context, printerID string, rec Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return err
	}
	row := recordRow{
		PrinterID:    printerID,
		Fields:       string(fields),
		LastModified: rec.LastModified,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Overrides returns the static overrides map.
func (s *DBStore) Overrides(ctx context.Context) (map[string]string, error) {
	var rows []overrideRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
