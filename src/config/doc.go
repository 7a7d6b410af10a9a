// Package config defines the configuration for a joining node.
//
// Regardless of how the node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options the node relies on a data directory, defined by Config.DataDir,
// where it expects to find a few additional files:
//
//	priv_key // the hex encoded secp256k1 validator key (cf. joiner keygen).
//	chainspec.toml // the chainspec: genesis validators and consensus parameters.
//	joiner.toml // (optional) a configuration file overriding the defaults.
package config
