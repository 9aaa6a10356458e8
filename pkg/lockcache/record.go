package lockcache

import (
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

// Record is a locally remembered lock. It is a convenience for listing locks
// the user created and is never consulted for on-chain decisions.
type Record struct {
	Address         ed25519.PublicKey
	Owner           ed25519.PublicKey
	Amount          uint64
	UnlockTimestamp int64
	TokenMint       ed25519.PublicKey // nil for SOL locks
	AssetType       timelockwallet.AssetType
	CreatedAt       time.Time
	IsUnlocked      bool
}

func (r *Record) UnlockTime() time.Time {
	return time.Unix(r.UnlockTimestamp, 0)
}

// UnlockedAt reports whether the lock can be withdrawn at now. IsUnlocked is
// only the last value observed.
func (r *Record) UnlockedAt(now time.Time) bool {
	return now.Unix() >= r.UnlockTimestamp
}

func (r *Record) Clone() *Record {
	cloned := *r
	cloned.Address = append(ed25519.PublicKey(nil), r.Address...)
	cloned.Owner = append(ed25519.PublicKey(nil), r.Owner...)
	if r.TokenMint != nil {
		cloned.TokenMint = append(ed25519.PublicKey(nil), r.TokenMint...)
	}
	return &cloned
}

// jsonRecord is the stored form. Keys are base58 and times are unix
// milliseconds so entries stay readable.
type jsonRecord struct {
	Address         string `json:"address"`
	Owner           string `json:"owner,omitempty"`
	Amount          uint64 `json:"amount"`
	UnlockTimestamp int64  `json:"unlockTimestamp"`
	TokenMint       string `json:"tokenMint,omitempty"`
	AssetType       string `json:"assetType"`
	CreatedAt       int64  `json:"createdAt"`
	IsUnlocked      bool   `json:"isUnlocked"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	encoded := jsonRecord{
		Address:         base58.Encode(r.Address),
		Amount:          r.Amount,
		UnlockTimestamp: r.UnlockTimestamp,
		AssetType:       r.AssetType.String(),
		CreatedAt:       r.CreatedAt.UnixMilli(),
		IsUnlocked:      r.IsUnlocked,
	}
	if len(r.Owner) > 0 {
		encoded.Owner = base58.Encode(r.Owner)
	}
	if len(r.TokenMint) > 0 {
		encoded.TokenMint = base58.Encode(r.TokenMint)
	}

	return json.Marshal(&encoded)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var decoded jsonRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}

	address, err := solana.ParsePublicKey(decoded.Address)
	if err != nil {
		return errors.Wrap(err, "invalid address")
	}

	var owner, mint ed25519.PublicKey
	if decoded.Owner != "" {
		if owner, err = solana.ParsePublicKey(decoded.Owner); err != nil {
			return errors.Wrap(err, "invalid owner")
		}
	}
	if decoded.TokenMint != "" {
		if mint, err = solana.ParsePublicKey(decoded.TokenMint); err != nil {
			return errors.Wrap(err, "invalid token mint")
		}
	}

	assetType, err := timelockwallet.ParseAssetType(decoded.AssetType)
	if err != nil {
		return err
	}

	*r = Record{
		Address:         address,
		Owner:           owner,
		Amount:          decoded.Amount,
		UnlockTimestamp: decoded.UnlockTimestamp,
		TokenMint:       mint,
		AssetType:       assetType,
		CreatedAt:       time.UnixMilli(decoded.CreatedAt),
		IsUnlocked:      decoded.IsUnlocked,
	}
	return nil
}
