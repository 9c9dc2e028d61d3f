// Package oracle models the randomness coordinator that sits on the far side
// of the mint request/fulfillment boundary. Requests leave through a
// Coordinator; random words come back, signed by the coordinator key, through
// a Consumer at an arbitrary later time.
package oracle

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"randomnft/crypto"
)

var (
	ErrInvalidSubscription = errors.New("oracle: invalid subscription")
	ErrInvalidConsumer     = errors.New("oracle: consumer not registered")
	ErrInsufficientBalance = errors.New("oracle: insufficient subscription balance")
	ErrDuplicateRequest    = errors.New("oracle: request already pending")
	ErrUnknownRequest      = errors.New("oracle: request not pending")
	ErrConsumerNotSet      = errors.New("oracle: consumer not configured")
	ErrInvalidSignature    = errors.New("oracle: invalid fulfillment signature")
)

// Request asks the coordinator for NumWords random words on behalf of a
// consumer. RequestID is allocated by the consumer.
type Request struct {
	RequestID        uint64         `json:"requestId"`
	Consumer         common.Address `json:"consumer"`
	KeyHash          common.Hash    `json:"keyHash"`
	SubscriptionID   uint64         `json:"subscriptionId"`
	MinConfirmations uint16         `json:"minConfirmations"`
	CallbackGasLimit uint32         `json:"callbackGasLimit"`
	NumWords         uint32         `json:"numWords"`
}

// Coordinator accepts outbound randomness requests.
type Coordinator interface {
	RequestRandomness(ctx context.Context, req Request) error
}

// Requeuer is implemented by coordinators that can take back a request they
// already accepted, without charging for it again, after losing their queue.
type Requeuer interface {
	Requeue(req Request) error
}

// Consumer receives fulfillments from a coordinator.
type Consumer interface {
	FulfillRandomness(ctx context.Context, f Fulfillment) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(ctx context.Context, f Fulfillment) error

// FulfillRandomness implements Consumer.
func (fn ConsumerFunc) FulfillRandomness(ctx context.Context, f Fulfillment) error {
	return fn(ctx, f)
}

// Fulfillment carries the random words for one request and the coordinator's
// signature over them.
type Fulfillment struct {
	RequestID uint64
	Words     []*uint256.Int
	Signature []byte
}

const fulfillmentDomain = "randomnft/fulfillment/v1"

// Digest returns the keccak256 hash the coordinator signs.
func (f Fulfillment) Digest() []byte {
	buf := make([]byte, 0, len(fulfillmentDomain)+8+32*len(f.Words))
	buf = append(buf, fulfillmentDomain...)
	buf = binary.BigEndian.AppendUint64(buf, f.RequestID)
	for _, word := range f.Words {
		var b [32]byte
		if word != nil {
			b = word.Bytes32()
		}
		buf = append(buf, b[:]...)
	}
	return ethcrypto.Keccak256(buf)
}

// Sign attaches a signature produced by key.
func (f *Fulfillment) Sign(key *crypto.PrivateKey) error {
	sig, err := key.Sign(f.Digest())
	if err != nil {
		return fmt.Errorf("oracle: sign fulfillment: %w", err)
	}
	f.Signature = sig
	return nil
}

// VerifyFulfillment recovers the address that signed the fulfillment.
func VerifyFulfillment(f Fulfillment) (common.Address, error) {
	if len(f.Signature) != ethcrypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	signer, err := crypto.RecoverAddress(f.Digest(), f.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return signer, nil
}

type fulfillmentJSON struct {
	RequestID uint64        `json:"requestId"`
	Words     []string      `json:"words"`
	Signature hexutil.Bytes `json:"signature"`
}

// MarshalJSON renders words as 0x-prefixed hex quantities.
func (f Fulfillment) MarshalJSON() ([]byte, error) {
	out := fulfillmentJSON{RequestID: f.RequestID, Signature: f.Signature, Words: make([]string, len(f.Words))}
	for i, word := range f.Words {
		if word == nil {
			word = new(uint256.Int)
		}
		out.Words[i] = word.Hex()
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the hex encoding produced by MarshalJSON.
func (f *Fulfillment) UnmarshalJSON(data []byte) error {
	var in fulfillmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	words := make([]*uint256.Int, len(in.Words))
	for i, raw := range in.Words {
		word, err := uint256.FromHex(raw)
		if err != nil {
			return fmt.Errorf("oracle: word %d: %w", i, err)
		}
		words[i] = word
	}
	f.RequestID = in.RequestID
	f.Words = words
	f.Signature = in.Signature
	return nil
}
