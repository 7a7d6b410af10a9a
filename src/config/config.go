package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/joiner/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the validator's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultChainspecFile is the default name of the chainspec file.
	DefaultChainspecFile = "chainspec.toml"
)

// Default configuration values.
const (
	DefaultLogLevel              = "debug"
	DefaultBindAddr              = "127.0.0.1:34553"
	DefaultGossipInterval        = 30 * time.Second
	DefaultTCPTimeout            = 1000 * time.Millisecond
	DefaultInfectionTarget       = 3
	DefaultFinishedEntryDuration = 60 * time.Second
	DefaultGossipRequestTimeout  = 10 * time.Second
	DefaultGetRemainderTimeout   = 60 * time.Second
	DefaultCacheSize             = 10000
	DefaultStore                 = false
)

// NetworkConfig configures the TCP transport.
type NetworkConfig struct {
	// BindAddr is the local address:port where this node listens for
	// connections from other nodes.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is the address gossiped to other nodes. Defaults to the
	// bound address.
	AdvertiseAddr string `mapstructure:"advertise"`

	// KnownAddresses are the bootstrap peers dialled at startup.
	KnownAddresses []string `mapstructure:"bootstrap"`

	// GossipInterval is the period at which our own address is gossiped.
	GossipInterval time.Duration `mapstructure:"gossip-interval"`

	// TCPTimeout bounds dialling, handshakes and every write.
	TCPTimeout time.Duration `mapstructure:"timeout"`
}

// GossipConfig configures the address gossiper and the fetchers.
type GossipConfig struct {
	// InfectionTarget is the number of peers that must hold an item before we
	// stop gossiping it.
	InfectionTarget int `mapstructure:"infection-target"`

	// FinishedEntryDuration is how long a finished item is remembered so that
	// it is not gossiped again.
	FinishedEntryDuration time.Duration `mapstructure:"finished-entry-duration"`

	// GossipRequestTimeout is how long we wait for a peer to answer a gossip
	// message.
	GossipRequestTimeout time.Duration `mapstructure:"gossip-request-timeout"`

	// GetRemainderTimeout is how long a fetcher waits for a peer to answer a
	// GetRequest.
	GetRemainderTimeout time.Duration `mapstructure:"get-remainder-timeout"`
}

// ConsensusConfig configures the era supervisor.
type ConsensusConfig struct {
	// SecretKeyPath is the file containing the validator key.
	SecretKeyPath string `mapstructure:"secret-key"`
}

// NodeConfig holds the options specific to the joining phase.
type NodeConfig struct {
	// TrustedHash is the hex encoded hash of a block known to be in the
	// linear chain. When empty the node considers itself synchronized at once.
	TrustedHash string `mapstructure:"trusted-hash"`

	// ChainspecPath is the TOML chainspec.
	ChainspecPath string `mapstructure:"chainspec"`
}

// StorageConfig configures the block and deploy store.
type StorageConfig struct {
	// Persist activates the badger store.
	Persist bool `mapstructure:"store"`

	// Path is the directory containing the database files.
	Path string `mapstructure:"db"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`
}

// Config contains all the configuration properties of a joining node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every info, warning and error
	// entry.
	LogFile string `mapstructure:"log-file"`

	Network   NetworkConfig   `mapstructure:"network"`
	Gossip    GossipConfig    `mapstructure:"gossip"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Node      NodeConfig      `mapstructure:"node"`
	Storage   StorageConfig   `mapstructure:"storage"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:  DefaultDataDir(),
		LogLevel: DefaultLogLevel,
		Network: NetworkConfig{
			BindAddr:       DefaultBindAddr,
			GossipInterval: DefaultGossipInterval,
			TCPTimeout:     DefaultTCPTimeout,
		},
		Gossip: GossipConfig{
			InfectionTarget:       DefaultInfectionTarget,
			FinishedEntryDuration: DefaultFinishedEntryDuration,
			GossipRequestTimeout:  DefaultGossipRequestTimeout,
			GetRemainderTimeout:   DefaultGetRemainderTimeout,
		},
		Consensus: ConsensusConfig{
			SecretKeyPath: filepath.Join(DefaultDataDir(), DefaultKeyfile),
		},
		Node: NodeConfig{
			ChainspecPath: filepath.Join(DefaultDataDir(), DefaultChainspecFile),
		},
		Storage: StorageConfig{
			Persist:   DefaultStore,
			Path:      DefaultDatabaseDir(),
			CacheSize: DefaultCacheSize,
		},
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.Network.BindAddr = "127.0.0.1:0"
	config.Gossip.GetRemainderTimeout = time.Second
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database, key and
// chainspec paths if they are currently set to their default value. A path
// that is not the default was set explicitly, so it is left alone.
func (c *Config) SetDataDir(dataDir string) {
	def := DefaultDataDir()
	c.DataDir = dataDir
	if c.Storage.Path == filepath.Join(def, DefaultBadgerFile) {
		c.Storage.Path = filepath.Join(dataDir, DefaultBadgerFile)
	}
	if c.Consensus.SecretKeyPath == filepath.Join(def, DefaultKeyfile) {
		c.Consensus.SecretKeyPath = filepath.Join(dataDir, DefaultKeyfile)
	}
	if c.Node.ChainspecPath == filepath.Join(def, DefaultChainspecFile) {
		c.Node.ChainspecPath = filepath.Join(dataDir, DefaultChainspecFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return c.Consensus.SecretKeyPath
}

// AdvertiseAddr returns the address advertised to peers.
func (c *Config) AdvertiseAddr() string {
	if c.Network.AdvertiseAddr != "" {
		return c.Network.AdvertiseAddr
	}
	return c.Network.BindAddr
}

// Logger returns a formatted logrus Entry, with prefix set to "joiner".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				lfshook.PathMap{
					logrus.InfoLevel:  c.LogFile,
					logrus.WarnLevel:  c.LogFile,
					logrus.ErrorLevel: c.LogFile,
				},
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "joiner")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Joiner")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Joiner")
		} else {
			return filepath.Join(home, ".joiner")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
