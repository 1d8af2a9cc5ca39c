package conversion

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// IsValidWalletAddress Ethereumアドレス形式（0x + 20バイトの16進数）かどうかを返す
func IsValidWalletAddress(address string) bool {
	return common.IsHexAddress(address)
}

// IsValidTransactionHash トランザクションハッシュ形式（0x + 32バイトの16進数）かどうかを返す
// ハッシュはクレーム時に申告されたまま記録される。オンチェーン検証は行わない
func IsValidTransactionHash(hash string) bool {
	b, err := hexutil.Decode(hash)
	if err != nil {
		return false
	}
	return len(b) == common.HashLength
}
