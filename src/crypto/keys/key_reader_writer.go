package keys

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec"
)

// SimpleKeyfile reads and writes a secret key as a raw hex dump in a file that
// only its owner may access.
type SimpleKeyfile struct {
	l       sync.Mutex
	keyfile string
}

// NewSimpleKeyfile instantiates a new SimpleKeyfile with an underlying file
func NewSimpleKeyfile(keyfile string) *SimpleKeyfile {
	return &SimpleKeyfile{
		keyfile: keyfile,
	}
}

// Path returns the location of the underlying file.
func (k *SimpleKeyfile) Path() string {
	return k.keyfile
}

// CheckFileInfo verifies that the file exists and has user permissions only.
func (k *SimpleKeyfile) CheckFileInfo() error {
	info, err := os.Stat(k.keyfile)
	if err != nil {
		return err
	}

	perm := info.Mode().Perm()

	// group and other bits
	var nonUserMask os.FileMode = (1 << 6) - 1

	if perm&nonUserMask != 0 {
		return fmt.Errorf("%s permissions should exclude 'group' and 'other'. Got %o", filepath.Base(k.keyfile), perm)
	}

	return nil
}

// ReadKey reads the secret key from the underlying file.
func (k *SimpleKeyfile) ReadKey() (*btcec.PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	if err := k.CheckFileInfo(); err != nil {
		return nil, err
	}

	buf, err := ioutil.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, err
	}

	return ParseSecretKey(raw)
}

// WriteKey writes the secret key to the underlying file, creating parent
// directories as needed.
func (k *SimpleKeyfile) WriteKey(sk *btcec.PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	if err := os.MkdirAll(filepath.Dir(k.keyfile), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.keyfile, []byte(hex.EncodeToString(DumpSecretKey(sk))), 0600)
}
