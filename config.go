package ezdb

import (
	"log/slog"
	"time"
)

// Defaults applied to zero Config fields.
const (
	DefaultMaxDeleteRowSize     = 100000
	DefaultRetentionPause       = 5 * time.Second
	DefaultRetentionStartDelay  = time.Minute
	DefaultRetentionInterval    = time.Minute
	DefaultStatusInterval       = 5 * time.Second
	DefaultStatusCheckDelay     = 10 * time.Millisecond
	DefaultChunkSize            = 1000
	DefaultLastN                = 100
	DefaultRetentionParallelism = 1
	DefaultLockTTL              = 10 * time.Minute
)

// Config holds engine tuning. Zero values are replaced by the defaults above.
type Config struct {
	// MaxDeleteRowSize bounds the rows removed by one retention pass and by
	// DeleteLastNRows.
	MaxDeleteRowSize int64 `koanf:"max_delete_row_size"`
	// RetentionPause is the wait between two retention passes on one table.
	// A negative value disables the wait.
	RetentionPause time.Duration `koanf:"retention_pause"`
	// RetentionStartDelay and RetentionInterval drive Handle.StartRetention.
	RetentionStartDelay time.Duration `koanf:"retention_start_delay"`
	RetentionInterval   time.Duration `koanf:"retention_interval"`
	// RetentionParallelism is the number of tables CheckDeleteTables works
	// on at once.
	RetentionParallelism int `koanf:"retention_parallelism"`
	// LockTTL is the expiry of the per-table retention lock.
	LockTTL time.Duration `koanf:"lock_ttl"`

	StatusInterval   time.Duration `koanf:"status_interval"`
	StatusCheckDelay time.Duration `koanf:"status_check_delay"`

	DefaultChunkSize int `koanf:"chunk_size"`

	Logger *slog.Logger `koanf:"-"`
	Locker Locker       `koanf:"-"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxDeleteRowSize <= 0 {
		c.MaxDeleteRowSize = DefaultMaxDeleteRowSize
	}
	if c.RetentionPause < 0 {
		c.RetentionPause = 0
	} else if c.RetentionPause == 0 {
		c.RetentionPause = DefaultRetentionPause
	}
	if c.RetentionStartDelay <= 0 {
		c.RetentionStartDelay = DefaultRetentionStartDelay
	}
	if c.RetentionInterval <= 0 {
		c.RetentionInterval = DefaultRetentionInterval
	}
	if c.RetentionParallelism <= 0 {
		c.RetentionParallelism = DefaultRetentionParallelism
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.StatusCheckDelay <= 0 {
		c.StatusCheckDelay = DefaultStatusCheckDelay
	}
	if c.DefaultChunkSize <= 0 {
		c.DefaultChunkSize = DefaultChunkSize
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Target describes where an engine connects to.
type Target struct {
	Dialect  string `koanf:"dialect"`
	Path     string `koanf:"path"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	// CreateIfMissing asks server dialects to create Database on open.
	CreateIfMissing bool              `koanf:"create_if_missing"`
	Options         map[string]string `koanf:"options"`
}
