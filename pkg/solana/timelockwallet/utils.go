package timelockwallet

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	bin "github.com/code-payments/timelock-wallet-client/pkg/solana/binary"
)

const discriminatorSize = 8

func putDiscriminator(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:], src)
	*offset += discriminatorSize
}

func getDiscriminator(src []byte, dst *[]byte, offset *int) {
	*dst = make([]byte, discriminatorSize)
	copy(*dst, src[*offset:])
	*offset += discriminatorSize
}

func putKey(dst []byte, v ed25519.PublicKey, offset *int) {
	bin.PutKey32(dst, v, offset)
}

func getKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	bin.GetKey32(src, dst, offset)
}

func putUint8(dst []byte, v uint8, offset *int) {
	bin.PutUint8(dst, v, offset)
}

func getUint8(src []byte, dst *uint8, offset *int) {
	bin.GetUint8(src, dst, offset)
}

func putUint64(dst []byte, v uint64, offset *int) {
	bin.PutUint64(dst, v, offset)
}

func getUint64(src []byte, dst *uint64, offset *int) {
	bin.GetUint64(src, dst, offset)
}

func putInt64(dst []byte, v int64, offset *int) {
	bin.PutInt64(dst, v, offset)
}

func getInt64(src []byte, dst *int64, offset *int) {
	bin.GetInt64(src, dst, offset)
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

func checkArglessData(data, expected []byte) error {
	if len(data) != discriminatorSize {
		return ErrInvalidInstructionData
	}
	if !bytes.Equal(data, expected) {
		return ErrInvalidInstructionData
	}
	return nil
}
