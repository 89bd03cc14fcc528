package fhe

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const UserDecryptPrimaryType = "UserDecryptRequestVerification"

func NewUserDecryptTypedData(chainID *big.Int, verifyingContract common.Address, publicKey []byte, contractAddresses []common.Address, startTimestamp int64, durationDays int) apitypes.TypedData {
	contracts := make([]interface{}, len(contractAddresses))
	for i, c := range contractAddresses {
		contracts[i] = c.Hex()
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			UserDecryptPrimaryType: {
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "contractsChainId", Type: "uint256"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
			},
		},
		PrimaryType: UserDecryptPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              "Decryption",
			Version:           "1",
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"publicKey":         hexutil.Encode(publicKey),
			"contractAddresses": contracts,
			"contractsChainId":  chainID.String(),
			"startTimestamp":    strconv.FormatInt(startTimestamp, 10),
			"durationDays":      strconv.Itoa(durationDays),
		},
	}
}
