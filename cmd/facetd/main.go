package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/messaging"
	"github.com/matst80/slask-facets/pkg/server"
	"github.com/matst80/slask-facets/pkg/storage"
)

var (
	dataFile      = "data/rows.json.gz"
	listenAddress = ":8080"
	redisUrl      = os.Getenv("REDIS_URL")
	redisPassword = os.Getenv("REDIS_PASSWORD")
	rabbitUrl     = os.Getenv("RABBIT_URL")
	rabbitVHost   = os.Getenv("RABBIT_HOST")
	topicPrefix   = "facets"
)

var (
	leafFiltering   = flag.Bool("leaf-filtering", false, "filter from leaf rows and keep ancestors of matching rows")
	maxLeafDepth    = flag.Int("max-leaf-depth", 100, "max sub-row depth to apply filters at")
	snapshotTTL     = flag.Duration("snapshot-ttl", 10*time.Minute, "ttl of facet snapshots in redis")
	saveInterval    = flag.Duration("save-interval", time.Minute, "how often to save changed rows to disk")
	enableProfiling = flag.Bool("profiling", false, "enable pprof handlers")
)

func init() {
	if v, ok := os.LookupEnv("DATA_FILE"); ok {
		dataFile = v
	}
	if v, ok := os.LookupEnv("LISTEN_ADDRESS"); ok {
		listenAddress = v
	}
	if v, ok := os.LookupEnv("TOPIC_PREFIX"); ok {
		topicPrefix = v
	}
}

type app struct {
	table     *index.Table
	storage   *storage.DiskStorage
	fileName  string
	mu        sync.Mutex
	savedAt   uint64
	listener  *messaging.RowChangeListener
	snapshots *server.RedisSnapshotStore
}

func (a *app) load() error {
	dataset, err := a.storage.LoadDataset(a.fileName)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("no data file %s, starting empty", a.fileName)
		return nil
	}
	if err != nil {
		return err
	}
	for _, column := range dataset.Columns {
		a.table.AddColumn(column)
	}
	a.table.SetRows(dataset.Rows)
	a.savedAt = a.table.Epoch()
	return nil
}

// save writes the rows when the table changed since the last save.
func (a *app) save(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	epoch := a.table.Epoch()
	if epoch == a.savedAt {
		return nil
	}
	dataset := &storage.Dataset{
		Columns: a.table.Columns(),
		Rows:    a.table.PreFilteredRowModel().Rows,
	}
	if err := a.storage.SaveDataset(a.fileName, dataset); err != nil {
		return err
	}
	a.savedAt = epoch
	log.Printf("saved %d rows to %s", len(dataset.Rows), a.fileName)
	return nil
}

func (a *app) saveOnInterval(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if err := a.save(context.Background()); err != nil {
				log.Printf("failed to save rows: %v", err)
			}
		}
	}()
}

func (a *app) close(ctx context.Context) error {
	var err error
	if a.listener != nil {
		err = a.listener.Close()
	}
	if a.snapshots != nil {
		err = errors.Join(err, a.snapshots.Close())
	}
	return err
}

func main() {
	flag.Parse()

	table := index.NewTable(index.TableOptions{
		FilterOptions: index.FilterOptions{
			FilterFromLeafRows:    *leafFiltering,
			MaxLeafRowFilterDepth: *maxLeafDepth,
		},
	})
	a := &app{
		table:    table,
		storage:  storage.NewDiskStorage(filepath.Dir(dataFile)),
		fileName: filepath.Base(dataFile),
	}
	if err := a.load(); err != nil {
		log.Fatalf("could not load rows: %v", err)
	}

	var snapshots server.FacetSnapshotStore
	if redisUrl != "" {
		a.snapshots = server.NewRedisSnapshotStore(redisUrl, redisPassword, 0, *snapshotTTL)
		if err := a.snapshots.Ping(context.Background()); err != nil {
			log.Printf("redis not reachable, snapshots may fail: %v", err)
		}
		snapshots = a.snapshots
	}

	if rabbitUrl != "" {
		a.listener = messaging.NewRowChangeListener(table, 500, time.Second)
		err := a.listener.Connect(messaging.RabbitConfig{
			Prefix: topicPrefix,
			Url:    rabbitUrl,
			VHost:  rabbitVHost,
		})
		if err != nil {
			log.Fatalf("failed to connect to rabbit: %v", err)
		}
	} else {
		log.Println("no rabbit url, row change feed disabled")
	}

	a.saveOnInterval(*saveInterval)

	ws := server.NewWebServer(table, snapshots)
	cfg := common.LoadTimeoutConfig(common.DefaultTimeoutConfig())
	srv := common.NewServerWithTimeouts(listenAddress, ws.Handle(*enableProfiling), cfg)
	common.RunServerWithShutdown(srv, "facet server", cfg, a.close, a.save)
}
