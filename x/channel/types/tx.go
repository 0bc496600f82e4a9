package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/cosmos/cosmos-sdk/crypto/keys/ed25519"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/mr-tron/base58"
)

// Hash is a 32 byte block or message hash.
type Hash [32]byte

func (h Hash) String() string { return base58.Encode(h[:]) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	raw, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", text, err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("hash must be %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return nil
}

// Message is the signed part of a transaction.
type Message struct {
	FeePayer        Address       `json:"fee_payer"`
	RecentBlockhash Hash          `json:"recent_blockhash"`
	Instructions    []Instruction `json:"instructions"`
}

// TxSignature binds a signer to its signature over the message.
type TxSignature struct {
	Signer    Address `json:"signer"`
	Signature []byte  `json:"signature"`
}

// Transaction is an atomic batch of instructions.
type Transaction struct {
	Message    Message       `json:"message"`
	Signatures []TxSignature `json:"signatures"`
}

// NewTransaction builds an unsigned transaction.
func NewTransaction(feePayer Address, blockhash Hash, ixs ...Instruction) *Transaction {
	return &Transaction{Message: Message{FeePayer: feePayer, RecentBlockhash: blockhash, Instructions: ixs}}
}

// MessageBytes returns the bytes every signer signs.
func (tx *Transaction) MessageBytes() ([]byte, error) {
	return rlp.EncodeToBytes(&tx.Message)
}

// ID identifies a transaction by its fee payer signature, or the message
// hash while unsigned.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) > 0 {
		return base58.Encode(tx.Signatures[0].Signature)
	}
	bz, err := tx.MessageBytes()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(bz)
	return base58.Encode(sum[:])
}

// RequiredSigners returns the fee payer followed by every other signer
// named by an instruction, in first appearance order.
func (tx *Transaction) RequiredSigners() []Address {
	seen := map[Address]bool{tx.Message.FeePayer: true}
	signers := []Address{tx.Message.FeePayer}
	for _, ix := range tx.Message.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !seen[meta.Address] {
				seen[meta.Address] = true
				signers = append(signers, meta.Address)
			}
		}
	}
	return signers
}

// AddressFromPubKey converts an ed25519 public key to an Address.
func AddressFromPubKey(pk cryptotypes.PubKey) Address {
	var a Address
	copy(a[:], pk.Bytes())
	return a
}

// Sign replaces the signature set. Keys must cover every required signer.
func (tx *Transaction) Sign(keys ...cryptotypes.PrivKey) error {
	msg, err := tx.MessageBytes()
	if err != nil {
		return err
	}
	byAddr := make(map[Address]cryptotypes.PrivKey, len(keys))
	for _, k := range keys {
		byAddr[AddressFromPubKey(k.PubKey())] = k
	}

	sigs := make([]TxSignature, 0, len(keys))
	for _, signer := range tx.RequiredSigners() {
		key, ok := byAddr[signer]
		if !ok {
			return ErrMissingSignature.Wrapf("no key for signer %s", signer)
		}
		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign as %s: %w", signer, err)
		}
		sigs = append(sigs, TxSignature{Signer: signer, Signature: sig})
	}
	tx.Signatures = sigs
	return nil
}

// VerifySignatures checks every signature and returns the verified signer set.
func (tx *Transaction) VerifySignatures() (map[Address]bool, error) {
	msg, err := tx.MessageBytes()
	if err != nil {
		return nil, err
	}
	signed := make(map[Address]bool, len(tx.Signatures))
	for _, s := range tx.Signatures {
		pub := &ed25519.PubKey{Key: s.Signer.Bytes()}
		if !pub.VerifySignature(msg, s.Signature) {
			return nil, fmt.Errorf("bad signature for %s", s.Signer)
		}
		signed[s.Signer] = true
	}
	for _, required := range tx.RequiredSigners() {
		if !signed[required] {
			return nil, ErrMissingSignature.Wrapf("signer %s", required)
		}
	}
	return signed, nil
}

func EncodeTransaction(tx *Transaction) ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

func DecodeTransaction(bz []byte) (*Transaction, error) {
	var tx Transaction
	if err := rlp.DecodeBytes(bz, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}
