package keys

import (
	"encoding/hex"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/joiner/src/crypto"
)

func TestSimpleKeyfile(t *testing.T) {
	dir, err := ioutil.TempDir("", "joiner-keys")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	keyfile := NewSimpleKeyfile(filepath.Join(dir, "secret_key"))

	// Try a read, should get nothing
	if key, err := keyfile.ReadKey(); err == nil || key != nil {
		t.Fatalf("ReadKey should fail on a missing file")
	}

	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	if err := keyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	nKey, err := keyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if PublicKeyHex(nKey.PubKey()) != PublicKeyHex(key.PubKey()) {
		t.Fatalf("Keys do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir, err := ioutil.TempDir("", "joiner-keys")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	key, _ := GenerateKey()
	rawKey := hex.EncodeToString(DumpSecretKey(key))

	for _, c := range []struct {
		mode    os.FileMode
		wantErr bool
	}{
		{0777, true},
		{0644, true},
		{0604, true},
		{0640, true},
		{0600, false},
		{0400, false},
	} {
		p := filepath.Join(dir, "key_"+c.mode.String())
		if err := ioutil.WriteFile(p, []byte(rawKey), c.mode); err != nil {
			t.Fatal(err)
		}
		// WriteFile honours umask, force the mode.
		os.Chmod(p, c.mode)

		_, err := NewSimpleKeyfile(p).ReadKey()
		if c.wantErr && err == nil {
			t.Errorf("%o: expected a permissions error", c.mode)
		}
		if !c.wantErr && err != nil {
			t.Errorf("%o: unexpected error %v", c.mode, err)
		}
	}
}

func TestSignVerify(t *testing.T) {
	sk, _ := GenerateKey()
	other, _ := GenerateKey()

	digest := crypto.Hash([]byte("J'aime mieux forger mon ame que la meubler"))

	sig, err := Sign(sk, digest[:])
	if err != nil {
		t.Fatal(err)
	}

	if !Verify(sk.PubKey(), digest[:], sig) {
		t.Fatalf("signature should verify")
	}

	if Verify(other.PubKey(), digest[:], sig) {
		t.Fatalf("signature should not verify against another key")
	}

	if Verify(sk.PubKey(), digest[:], []byte{0x30, 0x01}) {
		t.Fatalf("garbage signature should not verify")
	}
}

func TestParseSecretKey(t *testing.T) {
	if _, err := ParseSecretKey(make([]byte, 31)); err == nil {
		t.Errorf("short key should be rejected")
	}
	if _, err := ParseSecretKey(make([]byte, SecretKeyLength)); err == nil {
		t.Errorf("zero scalar should be rejected")
	}

	sk, _ := GenerateKey()
	pub, err := ParsePublicKeyHex(PublicKeyHex(sk.PubKey()))
	if err != nil {
		t.Fatal(err)
	}
	if !pub.IsEqual(sk.PubKey()) {
		t.Errorf("public key round trip mismatch")
	}
}
