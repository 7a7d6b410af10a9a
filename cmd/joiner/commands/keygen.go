package commands

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/spf13/cobra"
)

var (
	privKeyFile           string
	pubKeyFile            string
	defaultPrivateKeyFile = fmt.Sprintf("%s/priv_key", _config.DataDir)
	defaultPublicKeyFile  = fmt.Sprintf("%s/key.pub", _config.DataDir)
)

// NewKeygenCmd produces a KeygenCmd which create a key pair
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create new validator key pair",
		RunE:  keygen,
	}

	AddKeygenFlags(cmd)

	return cmd
}

// AddKeygenFlags adds flags to the keygen command
func AddKeygenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&privKeyFile, "priv", defaultPrivateKeyFile, "File where the private key will be written")
	cmd.Flags().StringVar(&pubKeyFile, "pub", defaultPublicKeyFile, "File where the public key will be written")
}

func keygen(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(privKeyFile); err == nil {
		return fmt.Errorf("A key already lives under: %s", path.Dir(privKeyFile))
	}

	key, err := keys.GenerateKey()
	if err != nil {
		return fmt.Errorf("Error generating secp256k1 key")
	}

	if err := keys.NewSimpleKeyfile(privKeyFile).WriteKey(key); err != nil {
		return fmt.Errorf("Writing private key: %s", err)
	}

	fmt.Printf("Your private key has been saved to: %s\n", privKeyFile)

	if err := os.MkdirAll(path.Dir(pubKeyFile), 0700); err != nil {
		return fmt.Errorf("Writing public key: %s", err)
	}

	pub := keys.PublicKeyHex(key.PubKey())

	if err := ioutil.WriteFile(pubKeyFile, []byte(pub), 0600); err != nil {
		return fmt.Errorf("Writing public key: %s", err)
	}

	fmt.Printf("Your public key has been saved to: %s\n", pubKeyFile)

	return nil
}
