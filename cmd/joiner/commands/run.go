package commands

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/joiner/src/reactor"
	"github.com/mosaicnetworks/joiner/src/reactor/initializer"
	"github.com/mosaicnetworks/joiner/src/reactor/joiner"
	"github.com/mosaicnetworks/joiner/src/reactor/validator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// shutdownTimeout bounds the teardown of the network once joining is over.
const shutdownTimeout = 10 * time.Second

var errNotSynced = errors.New("joiner stopped before synchronizing with the linear chain")

// NewRunCmd returns the command that starts a joining node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Join the network",
		PreRunE: loadConfig,
		RunE:    runJoiner,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runJoiner(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	initReactor, err := initializer.New(_config)
	if err != nil {
		logger.Error("Cannot initialize node: ", err)
		return err
	}

	runner, err := reactor.NewRunner[joiner.Event, *joiner.Reactor](
		joiner.Constructor(initReactor),
		joiner.Lift,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		logger,
	)
	if err != nil {
		logger.Error("Cannot create joiner: ", err)
		initReactor.Storage.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigs:
			logger.WithField("signal", s).Info("Interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := runner.Run(ctx)
	runner.Shutdown()
	synced := runner.Reactor().IsStopped()

	teardownCtx, teardownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer teardownCancel()

	validatorConfig := runner.Reactor().IntoValidatorConfig(teardownCtx)
	defer validatorConfig.Storage.Close()

	return finishJoin(runErr, synced, validatorConfig, logger)
}

// finishJoin decides the outcome of the joining phase once the reactor is torn
// down. Only a synchronized node is ready to validate.
func finishJoin(runErr error, synced bool, conf *validator.InitConfig, logger *logrus.Entry) error {
	if runErr != nil && runErr != context.Canceled {
		logger.WithError(runErr).Error("Joiner failed")
		return runErr
	}

	if !synced {
		logger.Error("Interrupted before synchronizing")
		return errNotSynced
	}

	if err := conf.Validate(); err != nil {
		return err
	}

	logger.WithFields(conf.Fields()).Info("Ready to validate")

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// flagKeys maps every run flag onto the nested configuration key it sets.
var flagKeys = map[string]string{
	"datadir":   "datadir",
	"log":       "log",
	"log-file":  "log-file",
	"listen":    "network.listen",
	"advertise": "network.advertise",
	"bootstrap": "network.bootstrap",
	"gossip":    "network.gossip-interval",
	"timeout":   "network.timeout",

	"infection-target":        "gossip.infection-target",
	"finished-entry-duration": "gossip.finished-entry-duration",
	"gossip-request-timeout":  "gossip.gossip-request-timeout",
	"get-remainder-timeout":   "gossip.get-remainder-timeout",

	"secret-key":   "consensus.secret-key",
	"trusted-hash": "node.trusted-hash",
	"chainspec":    "node.chainspec",

	"store":      "storage.store",
	"db":         "storage.db",
	"cache-size": "storage.cache-size",
}

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Optional file receiving a copy of the logs")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Network.BindAddr, "Listen IP:Port for the node")
	cmd.Flags().StringP("advertise", "a", _config.Network.AdvertiseAddr, "Advertise IP:Port for the node")
	cmd.Flags().StringSliceP("bootstrap", "b", _config.Network.KnownAddresses, "IP:Port of known peers")
	cmd.Flags().Duration("gossip", _config.Network.GossipInterval, "Time between gossips of our address")
	cmd.Flags().DurationP("timeout", "t", _config.Network.TCPTimeout, "TCP Timeout")

	// Gossip
	cmd.Flags().Int("infection-target", _config.Gossip.InfectionTarget, "Number of peers an address is gossiped to")
	cmd.Flags().Duration("finished-entry-duration", _config.Gossip.FinishedEntryDuration, "How long a gossiped address is remembered")
	cmd.Flags().Duration("gossip-request-timeout", _config.Gossip.GossipRequestTimeout, "Gossip response timeout")
	cmd.Flags().Duration("get-remainder-timeout", _config.Gossip.GetRemainderTimeout, "Fetch response timeout")

	// Consensus and sync
	cmd.Flags().String("secret-key", _config.Consensus.SecretKeyPath, "File containing the validator key")
	cmd.Flags().String("trusted-hash", _config.Node.TrustedHash, "Hex hash of a block known to be in the linear chain")
	cmd.Flags().String("chainspec", _config.Node.ChainspecPath, "Chainspec file")

	// Store
	cmd.Flags().Bool("store", _config.Storage.Persist, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Storage.Path, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Storage.CacheSize, "Number of items in LRU caches")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, --secret-key or
	// --chainspec, this will move them inside the new datadir
	_config.SetDataDir(_config.DataDir)

	_config.Logger().WithFields(logrus.Fields{
		"DataDir":        _config.DataDir,
		"LogLevel":       _config.LogLevel,
		"BindAddr":       _config.Network.BindAddr,
		"AdvertiseAddr":  _config.AdvertiseAddr(),
		"KnownAddresses": _config.Network.KnownAddresses,
		"GossipInterval": _config.Network.GossipInterval,
		"TCPTimeout":     _config.Network.TCPTimeout,
		"SecretKey":      _config.Consensus.SecretKeyPath,
		"TrustedHash":    _config.Node.TrustedHash,
		"Chainspec":      _config.Node.ChainspecPath,
		"Store":          _config.Storage.Persist,
		"DatabaseDir":    _config.Storage.Path,
		"CacheSize":      _config.Storage.CacheSize,
	}).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/joiner.toml (.json, .yaml also work)
	viper.SetConfigName("joiner")        // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
