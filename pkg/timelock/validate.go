package timelock

import (
	"crypto/ed25519"
	"time"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

func ValidateAmount(field string, amount uint64) error {
	if amount == 0 {
		return &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}

// ValidateUnlockTimestamp requires the unlock time to be strictly after now.
func ValidateUnlockTimestamp(unlockTimestamp int64, now time.Time) error {
	if unlockTimestamp <= now.Unix() {
		return &ValidationError{Field: "unlock_timestamp", Reason: "must be in the future"}
	}
	return nil
}

// ValidateSigner checks that pub is a key a wallet could sign with.
func ValidateSigner(field string, pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return &ValidationError{Field: field, Reason: "must be a 32 byte public key"}
	}
	if !solana.IsOnCurve(pub) {
		return &ValidationError{Field: field, Reason: "must be on the ed25519 curve"}
	}
	return nil
}

// ValidateDerivedAddress checks that pub could be a program derived address.
func ValidateDerivedAddress(field string, pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return &ValidationError{Field: field, Reason: "must be a 32 byte public key"}
	}
	if solana.IsOnCurve(pub) {
		return &ValidationError{Field: field, Reason: "must not be on the ed25519 curve"}
	}
	return nil
}

func ValidateAssetType(assetType timelockwallet.AssetType) error {
	if !assetType.IsValid() {
		return &ValidationError{Field: "asset_type", Reason: "unknown asset type"}
	}
	return nil
}

func validateKey(field string, pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return &ValidationError{Field: field, Reason: "must be a 32 byte public key"}
	}
	return nil
}
