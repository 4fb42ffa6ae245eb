package pricestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go_etl_project/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "etl_test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func sampleBatch(n int, ticker string) []models.PriceRecord {
	collectedAt := time.Date(2024, 3, 8, 21, 5, 0, 0, time.UTC)
	batch := make([]models.PriceRecord, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, models.PriceRecord{
			Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close:       decimal.NewFromFloat(100.25).Add(decimal.NewFromInt(int64(i))),
			Ticker:      ticker,
			CollectedAt: collectedAt,
		})
	}
	return batch
}

func readBack(t *testing.T, db *gorm.DB, table string) []models.PriceRecord {
	t.Helper()
	var rows []models.PriceRecord
	require.NoError(t, db.Table(table).Order("id").Find(&rows).Error)
	return rows
}

func TestSaveReplaceRoundTrip(t *testing.T) {
	for _, chunkSize := range []int{1, 3, 1000} {
		t.Run(fmt.Sprintf("chunk_%d", chunkSize), func(t *testing.T) {
			db := newTestDB(t)
			store := NewPriceStore(db, "", "tickers", chunkSize)
			batch := sampleBatch(7, "BTC-USD")

			require.NoError(t, store.Save(context.Background(), batch, WriteReplace))

			rows := readBack(t, db, "tickers")
			require.Len(t, rows, 7)
			for i, row := range rows {
				assert.Equal(t, batch[i].Date.Unix(), row.Date.Unix())
				assert.Equal(t, batch[i].Ticker, row.Ticker)
				assert.True(t, batch[i].Close.Equal(row.Close),
					"row %d: want close %s, got %s", i, batch[i].Close, row.Close)
			}
		})
	}
}

func TestSaveReplaceDropsPriorContents(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 0)

	require.NoError(t, store.Save(context.Background(), sampleBatch(5, "OLD.SA"), WriteReplace))
	require.NoError(t, store.Save(context.Background(), sampleBatch(3, "NEW.SA"), WriteReplace))

	rows := readBack(t, db, "tickers")
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, "NEW.SA", row.Ticker)
	}
}

func TestSaveAppendKeepsExistingRows(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 0)

	require.NoError(t, store.Save(context.Background(), sampleBatch(5, "OLD.SA"), WriteReplace))
	require.NoError(t, store.Save(context.Background(), sampleBatch(3, "NEW.SA"), WriteAppend))

	rows := readBack(t, db, "tickers")
	assert.Len(t, rows, 8)
}

func TestSaveAppendCreatesMissingTable(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 0)

	require.NoError(t, store.Save(context.Background(), sampleBatch(2, "BTC-USD"), WriteAppend))
	assert.Len(t, readBack(t, db, "tickers"), 2)
}

func TestSaveFailModeAbortsOnExistingTable(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 0)

	// Fresh table: fail mode behaves like a plain create
	require.NoError(t, store.Save(context.Background(), sampleBatch(2, "BTC-USD"), WriteFail))

	err := store.Save(context.Background(), sampleBatch(2, "ETH-USD"), WriteFail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableExists)

	// Prior contents untouched
	rows := readBack(t, db, "tickers")
	require.Len(t, rows, 2)
	assert.Equal(t, "BTC-USD", rows[0].Ticker)
}

func TestSaveRejectsEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 0)

	err := store.Save(context.Background(), nil, WriteReplace)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.False(t, db.Migrator().HasTable("tickers"))
}

func TestSaveRejectsUnknownMode(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 0)

	err := store.Save(context.Background(), sampleBatch(1, "BTC-USD"), WriteMode("upsert"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown write mode")
	assert.False(t, db.Migrator().HasTable("tickers"))
}

// A failure partway through a multi-chunk write must leave the table in its
// pre-write state, including the rows a replace would have dropped.
func TestSaveMultiChunkFailureRollsBackEverything(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, "", "tickers", 2)

	seed := sampleBatch(4, "SEED.SA")
	require.NoError(t, store.Save(context.Background(), seed, WriteReplace))

	// Fail the write on its second insert chunk
	inserts := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("fail_second_chunk", func(tx *gorm.DB) {
		inserts++
		if inserts == 2 {
			tx.AddError(errors.New("injected chunk failure"))
		}
	}))

	err := store.Save(context.Background(), sampleBatch(6, "NEW.SA"), WriteReplace) // 3 chunks of 2
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected chunk failure")
	require.GreaterOrEqual(t, inserts, 2)

	db.Callback().Create().Remove("fail_second_chunk")

	rows := readBack(t, db, "tickers")
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, "SEED.SA", row.Ticker)
	}
}

func TestTableNameQualifiesSchema(t *testing.T) {
	store := NewPriceStore(nil, "finance", "tickers", 0)
	assert.Equal(t, "finance.tickers", store.TableName())

	store = NewPriceStore(nil, "", "tickers", 0)
	assert.Equal(t, "tickers", store.TableName())
}
