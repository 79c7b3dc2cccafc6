package persistence

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/neogan74/catalog/internal/logger"
)

const gcInterval = 5 * time.Minute

// Badger owns an open BadgerDB and its value log garbage collector.
type Badger struct {
	DB *badger.DB

	log  logger.Logger
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// OpenBadger opens (creating if needed) a database under dataDir.
func OpenBadger(dataDir string, syncWrites bool, log logger.Logger) (*Badger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(dataDir)
	opts.SyncWrites = syncWrites
	opts.Logger = nil

	opts.ValueLogFileSize = 64 << 20
	opts.MemTableSize = 64 << 20
	opts.NumMemtables = 5
	opts.NumLevelZeroTables = 5
	opts.NumLevelZeroTablesStall = 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	b := &Badger{
		DB:   db,
		log:  log,
		stop: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.runGarbageCollection()

	log.Info("BadgerDB opened",
		logger.String("data_dir", dataDir),
		logger.Bool("sync_writes", syncWrites))

	return b, nil
}

func (b *Badger) runGarbageCollection() {
	defer b.wg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.DB.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				b.log.Warn("BadgerDB garbage collection failed", logger.Error(err))
			}
		case <-b.stop:
			return
		}
	}
}

// Close stops garbage collection and closes the database.
func (b *Badger) Close() error {
	var err error
	b.once.Do(func() {
		close(b.stop)
		b.wg.Wait()
		err = b.DB.Close()
	})
	return err
}
