package contract

import (
	"bytes"
	_ "embed"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed secretchat.abi.json
var secretChatABIJSON []byte

func ParseABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(secretChatABIJSON))
}
