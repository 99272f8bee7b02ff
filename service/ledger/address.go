package ledger

import (
	"math/rand"
	"regexp"
	"strings"
)

const (
	hexAlphabet    = "0123456789abcdef"
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

// ethAddressRegex matches the fixed simulator format: 0x + 40 hex digits.
var ethAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether address is syntactically valid for kind.
// These are the simulator's compatibility formats, not real checksum
// validation: Ethereum-like addresses are 0x + 40 hex; Bitcoin-like
// addresses are accepted on prefix alone (1, 3, or bc1).
func ValidAddress(kind AssetKind, address string) bool {
	switch kind {
	case AssetEthereum:
		return ethAddressRegex.MatchString(address)
	case AssetBitcoin:
		return address != "" &&
			(strings.HasPrefix(address, "1") || strings.HasPrefix(address, "3") || strings.HasPrefix(address, "bc1"))
	default:
		return false
	}
}

// GenerateAddress produces a syntactically valid address for kind.
func GenerateAddress(kind AssetKind) (string, error) {
	switch kind {
	case AssetEthereum:
		return "0x" + randomString(hexAlphabet, 40), nil
	case AssetBitcoin:
		return generateBitcoinAddress(), nil
	default:
		return "", &UnsupportedAssetKindError{Kind: kind}
	}
}

// generateBitcoinAddress picks one of the three common shapes:
// legacy 1..., script 3..., or a simplified bech32-style bc1... string.
func generateBitcoinAddress() string {
	switch rand.Intn(3) {
	case 0:
		return "1" + randomString(base58Alphabet, 33)
	case 1:
		return "3" + randomString(base58Alphabet, 33)
	default:
		return "bc1" + randomString(base58Alphabet, 30)
	}
}

func randomString(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return b.String()
}
