package timelockwallet

import "github.com/pkg/errors"

type AssetType uint8

const (
	AssetTypeSol AssetType = iota
	AssetTypeToken
)

var ErrUnknownAssetType = errors.New("unknown asset type")

func (a AssetType) IsValid() bool {
	return a == AssetTypeSol || a == AssetTypeToken
}

func (a AssetType) String() string {
	switch a {
	case AssetTypeSol:
		return "sol"
	case AssetTypeToken:
		return "token"
	}

	return "unknown"
}

// ParseAssetType accepts the names produced by String.
func ParseAssetType(s string) (AssetType, error) {
	switch s {
	case "sol", "SOL", "Sol":
		return AssetTypeSol, nil
	case "token", "TOKEN", "Token", "spl":
		return AssetTypeToken, nil
	}

	return 0, errors.Wrap(ErrUnknownAssetType, s)
}

func putAssetType(dst []byte, v AssetType, offset *int) {
	putUint8(dst, uint8(v), offset)
}

func getAssetType(src []byte, dst *AssetType, offset *int) {
	var v uint8
	getUint8(src, &v, offset)
	*dst = AssetType(v)
}
