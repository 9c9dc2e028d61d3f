package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"randomnft/core/events"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Source is the event feed the indexer follows.
type Source interface {
	Subscribe(seq uint64) (<-chan events.Record, func(), []events.Record)
}

// Config captures the dependencies required to construct an Indexer.
type Config struct {
	DB     *gorm.DB
	Source Source
	Logger *slog.Logger
	Now    func() time.Time
}

// Indexer projects ledger events into SQL tables for reporting.
type Indexer struct {
	db     *gorm.DB
	source Source
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cursor uint64
}

// Open connects to the database selected by driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return db, nil
}

// New migrates the schema and builds an indexer.
func New(cfg Config) (*Indexer, error) {
	if cfg.DB == nil {
		return nil, errors.New("indexer: db is required")
	}
	if err := AutoMigrate(cfg.DB); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Indexer{db: cfg.DB, source: cfg.Source, logger: logger, now: now}, nil
}

// DB exposes the underlying connection for exports.
func (i *Indexer) DB() *gorm.DB { return i.db }

// Cursor returns the sequence of the last applied record.
func (i *Indexer) Cursor() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cursor
}

// Run follows the source until ctx is cancelled. A subscription dropped for
// falling behind is reopened from the cursor.
func (i *Indexer) Run(ctx context.Context) error {
	if i.source == nil {
		return errors.New("indexer: source is required")
	}
	for {
		ch, cancel, backlog := i.source.Subscribe(i.Cursor())
		err := i.follow(ctx, ch, backlog)
		cancel()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		i.logger.Warn("indexer subscription dropped, resubscribing", "cursor", i.Cursor())
	}
}

func (i *Indexer) follow(ctx context.Context, ch <-chan events.Record, backlog []events.Record) error {
	for _, rec := range backlog {
		if err := i.Apply(ctx, rec); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-ch:
			if !ok {
				return nil
			}
			if err := i.Apply(ctx, rec); err != nil {
				return err
			}
		}
	}
}

// Apply projects a single record. Records at or below the cursor are skipped.
func (i *Indexer) Apply(ctx context.Context, rec events.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if rec.Sequence != 0 && rec.Sequence <= i.cursor {
		return nil
	}
	db := i.db.WithContext(ctx)
	var err error
	switch rec.Type {
	case events.TypeAssetRequested:
		err = i.applyRequested(db, rec)
	case events.TypeAssetMinted:
		err = i.applyMinted(db, rec)
	case events.TypeTreasuryWithdrawn:
		err = db.Create(&WithdrawalRow{
			Owner:     rec.Attributes["owner"],
			Amount:    rec.Attributes["amount"],
			Sequence:  rec.Sequence,
			IndexedAt: i.now(),
		}).Error
	}
	if err != nil {
		return fmt.Errorf("indexer: apply %s #%d: %w", rec.Type, rec.Sequence, err)
	}
	if rec.Sequence > i.cursor {
		i.cursor = rec.Sequence
	}
	return nil
}

func (i *Indexer) applyRequested(db *gorm.DB, rec events.Record) error {
	id, err := attrUint(rec, "requestId")
	if err != nil {
		return err
	}
	row := RequestRow{
		ID:        id,
		Requester: rec.Attributes["requester"],
		Paid:      rec.Attributes["paid"],
		Sequence:  rec.Sequence,
		IndexedAt: i.now(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"requester", "paid", "sequence"}),
	}).Create(&row).Error
}

func (i *Indexer) applyMinted(db *gorm.DB, rec events.Record) error {
	assetID, err := attrUint(rec, "assetId")
	if err != nil {
		return err
	}
	requestID, err := attrUint(rec, "requestId")
	if err != nil {
		return err
	}
	category, err := attrUint(rec, "category")
	if err != nil {
		return err
	}
	if category > 255 {
		return fmt.Errorf("category %d out of range", category)
	}
	minted := i.now()
	if raw := rec.Attributes["mintedAt"]; raw != "" && raw != "0" {
		unix, err := attrUint(rec, "mintedAt")
		if err != nil {
			return err
		}
		minted = time.Unix(int64(unix), 0).UTC()
	}
	return db.Transaction(func(tx *gorm.DB) error {
		asset := AssetRow{
			ID:        assetID,
			RequestID: requestID,
			Owner:     rec.Attributes["owner"],
			Category:  uint8(category),
			URI:       rec.Attributes["uri"],
			Sequence:  rec.Sequence,
			MintedAt:  minted,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&asset).Error; err != nil {
			return err
		}
		req := RequestRow{ID: requestID, Requester: asset.Owner, Paid: "0", IndexedAt: minted}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&req).Error; err != nil {
			return err
		}
		return tx.Model(&RequestRow{}).Where("id = ?", requestID).Updates(map[string]any{
			"fulfilled":    true,
			"asset_id":     assetID,
			"fulfilled_at": minted,
		}).Error
	})
}

func attrUint(rec events.Record, key string) (uint64, error) {
	raw, ok := rec.Attributes[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", key)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", key, err)
	}
	return v, nil
}
