package commands

import (
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

// RootCmd is the root command for the joiner
var RootCmd = &cobra.Command{
	Use:              "joiner",
	Short:            "join a running network and catch up with its linear chain",
	TraverseChildren: true,
}
