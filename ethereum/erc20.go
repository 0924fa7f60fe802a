package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/lightlink-network/ll-whale-tracker/tracker"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

// ERC20TransferABI covers the two token movements we follow.
const ERC20TransferABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const gweiDecimals = 9

// TransferDecoder recognises ERC-20 transfer and transferFrom call data.
type TransferDecoder struct {
	abi abi.ABI
}

var _ tracker.Decoder = &TransferDecoder{}

func NewTransferDecoder() (*TransferDecoder, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}
	return &TransferDecoder{abi: parsed}, nil
}

func (d *TransferDecoder) DecodeCall(data []byte) (tracker.Call, bool) {
	if len(data) < 4 {
		return tracker.Call{}, false
	}

	method, err := d.abi.MethodById(data[:4])
	if err != nil {
		return tracker.Call{}, false
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return tracker.Call{}, false
	}

	switch method.Name {
	case "transfer":
		return toCall(types.Transfer, args[0], args[1])
	case "transferFrom":
		return toCall(types.TransferFrom, args[1], args[2])
	default:
		return tracker.Call{}, false
	}
}

func toCall(method types.Method, to, value interface{}) (tracker.Call, bool) {
	addr, ok := to.(common.Address)
	if !ok {
		return tracker.Call{}, false
	}
	amount, ok := value.(*big.Int)
	if !ok {
		return tracker.Call{}, false
	}
	return tracker.Call{Method: method, To: addr.Hex(), Amount: amount}, true
}

// FormatGwei renders a wei amount in gwei without trailing zeros. A nil
// amount formats as "".
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return ""
	}
	return decimal.NewFromBigInt(wei, -gweiDecimals).String()
}
