package pricestore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go_etl_project/models"

	"gorm.io/gorm"
)

// WriteMode controls how Save treats an existing target table.
type WriteMode string

const (
	// WriteReplace drops and recreates the table, then writes all rows.
	WriteReplace WriteMode = "replace"
	// WriteAppend adds rows, leaving existing rows intact.
	WriteAppend WriteMode = "append"
	// WriteFail aborts if the table already exists.
	WriteFail WriteMode = "fail"
)

// DefaultChunkSize bounds the number of rows per insert statement.
const DefaultChunkSize = 1000

var (
	ErrTableExists = errors.New("target table already exists")
	ErrEmptyBatch  = errors.New("refusing to write an empty batch")
)

// PriceStore writes price batches into one schema-qualified table. The gorm
// handle is owned exclusively by the store for the duration of a write.
type PriceStore struct {
	db        *gorm.DB
	schema    string
	table     string
	chunkSize int
}

// NewPriceStore creates a store targeting schema.table. A non-positive
// chunkSize falls back to DefaultChunkSize.
func NewPriceStore(db *gorm.DB, schema, table string, chunkSize int) *PriceStore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &PriceStore{
		db:        db,
		schema:    schema,
		table:     table,
		chunkSize: chunkSize,
	}
}

// TableName returns the schema-qualified target table name.
func (s *PriceStore) TableName() string {
	if s.schema == "" {
		return s.table
	}
	return s.schema + "." + s.table
}

// Save writes the batch in bounded-size chunks inside one transaction. Any
// error rolls the whole write back, including the replace mode's drop and
// recreate, so no partial rows are ever visible.
func (s *PriceStore) Save(ctx context.Context, batch []models.PriceRecord, mode WriteMode) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	name := s.TableName()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists := tx.Migrator().HasTable(name)

		switch mode {
		case WriteFail:
			if exists {
				return fmt.Errorf("%w: %s", ErrTableExists, name)
			}
		case WriteReplace:
			if exists {
				if err := tx.Migrator().DropTable(name); err != nil {
					return fmt.Errorf("failed to drop table %s: %w", name, err)
				}
				exists = false
			}
		case WriteAppend:
		default:
			return fmt.Errorf("unknown write mode %q", mode)
		}

		if !exists {
			if err := tx.Table(name).AutoMigrate(&models.PriceRecord{}); err != nil {
				return fmt.Errorf("failed to create table %s: %w", name, err)
			}
		}

		if err := tx.Table(name).CreateInBatches(&batch, s.chunkSize).Error; err != nil {
			return fmt.Errorf("bulk insert failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %d rows to %s: %w", len(batch), name, err)
	}

	log.Printf("Saved %d price rows to %s (mode=%s, chunk_size=%d)", len(batch), name, mode, s.chunkSize)
	return nil
}
