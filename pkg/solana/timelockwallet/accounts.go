package timelockwallet

import (
	"bytes"
	"crypto/ed25519"
	"strconv"
	"time"

	"github.com/mr-tron/base58/base58"
)

type TimeLockAccount struct {
	Owner           ed25519.PublicKey
	UnlockTimestamp int64
	AssetType       AssetType
	Bump            uint8
	Amount          uint64
	TokenVault      ed25519.PublicKey // zero for SOL locks, and for token locks before the first deposit
}

const TimeLockAccountSize = (8 + // discriminator
	32 + // owner
	8 + // unlock_timestamp
	1 + // asset_type
	1 + // bump
	8 + // amount
	32) // token_vault

// OwnerOffset is where the owner key starts in the account data, for
// getProgramAccounts memcmp filters.
const OwnerOffset = 8

var timeLockAccountDiscriminator = []byte{112, 63, 106, 231, 182, 101, 88, 158}

func (obj *TimeLockAccount) Clone() *TimeLockAccount {
	return &TimeLockAccount{
		Owner:           append(ed25519.PublicKey(nil), obj.Owner...),
		UnlockTimestamp: obj.UnlockTimestamp,
		AssetType:       obj.AssetType,
		Bump:            obj.Bump,
		Amount:          obj.Amount,
		TokenVault:      append(ed25519.PublicKey(nil), obj.TokenVault...),
	}
}

func (obj *TimeLockAccount) UnlockTime() time.Time {
	return time.Unix(obj.UnlockTimestamp, 0)
}

// IsUnlocked reports whether withdrawals are allowed at now. The unlock
// timestamp itself is inclusive.
func (obj *TimeLockAccount) IsUnlocked(now time.Time) bool {
	return now.Unix() >= obj.UnlockTimestamp
}

// HasTokenVault reports whether a vault has been recorded on the account.
func (obj *TimeLockAccount) HasTokenVault() bool {
	return len(obj.TokenVault) == ed25519.PublicKeySize && !bytes.Equal(obj.TokenVault, make([]byte, ed25519.PublicKeySize))
}

func (obj *TimeLockAccount) String() string {
	var owner, tokenVault string

	if obj.Owner != nil {
		owner = base58.Encode(obj.Owner)
	}
	if obj.HasTokenVault() {
		tokenVault = base58.Encode(obj.TokenVault)
	}

	return "TimeLockAccount{" +
		"owner='" + owner + "'" +
		", unlock_timestamp='" + strconv.FormatInt(obj.UnlockTimestamp, 10) + "'" +
		", asset_type='" + obj.AssetType.String() + "'" +
		", bump='" + strconv.Itoa(int(obj.Bump)) + "'" +
		", amount='" + strconv.FormatUint(obj.Amount, 10) + "'" +
		", token_vault='" + tokenVault + "'" +
		"}"
}

func (obj *TimeLockAccount) Marshal() []byte {
	data := make([]byte, TimeLockAccountSize)

	var offset int

	putDiscriminator(data, timeLockAccountDiscriminator, &offset)

	putKey(data, obj.Owner, &offset)
	putInt64(data, obj.UnlockTimestamp, &offset)
	putAssetType(data, obj.AssetType, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, obj.Amount, &offset)
	putKey(data, obj.TokenVault, &offset)

	return data
}

// Unmarshal decodes the account. Anchor may allocate more space than the
// layout needs, so trailing bytes are ignored.
func (obj *TimeLockAccount) Unmarshal(data []byte) error {
	if len(data) < TimeLockAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, timeLockAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var decoded TimeLockAccount
	getKey(data, &decoded.Owner, &offset)
	getInt64(data, &decoded.UnlockTimestamp, &offset)
	getAssetType(data, &decoded.AssetType, &offset)
	if !decoded.AssetType.IsValid() {
		return ErrInvalidAccountData
	}
	getUint8(data, &decoded.Bump, &offset)
	getUint64(data, &decoded.Amount, &offset)
	getKey(data, &decoded.TokenVault, &offset)

	*obj = decoded
	return nil
}

// IsTimeLockAccount reports whether data carries the lock account
// discriminator.
func IsTimeLockAccount(data []byte) bool {
	return len(data) >= discriminatorSize && bytes.Equal(data[:discriminatorSize], timeLockAccountDiscriminator)
}
