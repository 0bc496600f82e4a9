package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cosmos/cosmos-sdk/crypto/keys/ed25519"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/spf13/cobra"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// KeyFile is the on-disk form of a signing key.
type KeyFile struct {
	Address    types.Address `json:"address"`
	PrivateKey string        `json:"private_key"`
}

// WriteKeyFile stores key at path with owner-only permissions. An existing
// file is never overwritten.
func WriteKeyFile(path string, key *ed25519.PrivKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(KeyFile{
		Address:    types.AddressFromPubKey(key.PubKey()),
		PrivateKey: hex.EncodeToString(key.Key),
	}, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(bz); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadKeyFile reads a key written by WriteKeyFile and checks it against its
// recorded address.
func LoadKeyFile(path string) (cryptotypes.PrivKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf KeyFile
	if err := json.Unmarshal(bz, &kf); err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", path, err)
	}
	raw, err := hex.DecodeString(kf.PrivateKey)
	if err != nil || len(raw) != ed25519.PrivKeySize {
		return nil, fmt.Errorf("key file %s: malformed private key", path)
	}
	key := &ed25519.PrivKey{Key: raw}
	if types.AddressFromPubKey(key.PubKey()) != kf.Address {
		return nil, fmt.Errorf("key file %s: address does not match key", path)
	}
	return key, nil
}

func signingKey(cmd *cobra.Command) (cryptotypes.PrivKey, error) {
	path, err := cmd.Flags().GetString(FlagKeyFile)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("--%s is required", FlagKeyFile)
	}
	return LoadKeyFile(path)
}

// GetKeysCmd returns commands that manage key files.
func GetKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing keys",
	}
	cmd.AddCommand(CmdKeysNew(), CmdKeysShow())
	return cmd
}

func CmdKeysNew() *cobra.Command {
	return &cobra.Command{
		Use:   "new [path]",
		Short: "Generate a new ed25519 key file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ed25519.GenPrivKey()
			if err := WriteKeyFile(args[0], key); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), types.AddressFromPubKey(key.PubKey()))
			return err
		},
	}
}

func CmdKeysShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show [path]",
		Short: "Print the address of a key file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := LoadKeyFile(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), types.AddressFromPubKey(key.PubKey()))
			return err
		},
	}
}
