package zap

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for every contract surface the builders touch.
// These are the produced-call shapes; decoding of events is not needed here.

const erc20ABIJSON = `[
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const tokenMessengerABIJSON = `[
	{"name":"depositForBurn","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"amount","type":"uint256"},
		{"name":"destinationDomain","type":"uint32"},
		{"name":"mintRecipient","type":"bytes32"},
		{"name":"burnToken","type":"address"},
		{"name":"destinationCaller","type":"bytes32"},
		{"name":"maxFee","type":"uint256"},
		{"name":"minFinalityThreshold","type":"uint32"}],"outputs":[]}
]`

const messageTransmitterABIJSON = `[
	{"name":"receiveMessage","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"message","type":"bytes"},
		{"name":"attestation","type":"bytes"}],"outputs":[]}
]`

const vaultABIJSON = `[
	{"name":"deposit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"},{"name":"receiver","type":"address"}],"outputs":[{"name":"shares","type":"uint256"}]},
	{"name":"redeem","type":"function","stateMutability":"nonpayable","inputs":[{"name":"shares","type":"uint256"},{"name":"receiver","type":"address"},{"name":"owner","type":"address"}],"outputs":[{"name":"assets","type":"uint256"}]},
	{"name":"previewRedeem","type":"function","stateMutability":"view","inputs":[{"name":"shares","type":"uint256"}],"outputs":[{"name":"assets","type":"uint256"}]}
]`

const vaultRouterABIJSON = `[
	{"name":"tokenManager","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"name":"executeOrder","type":"function","stateMutability":"payable","inputs":[
		{"name":"order","type":"tuple","components":[
			{"name":"user","type":"address"},
			{"name":"recipient","type":"address"},
			{"name":"inputs","type":"tuple[]","components":[
				{"name":"token","type":"address"},
				{"name":"amount","type":"uint256"}]},
			{"name":"outputs","type":"tuple[]","components":[
				{"name":"token","type":"address"},
				{"name":"minOutputAmount","type":"uint256"}]},
			{"name":"relay","type":"tuple","components":[
				{"name":"target","type":"address"},
				{"name":"value","type":"uint256"},
				{"name":"data","type":"bytes"}]}]},
		{"name":"route","type":"tuple[]","components":[
			{"name":"target","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"data","type":"bytes"},
			{"name":"patches","type":"tuple[]","components":[
				{"name":"token","type":"address"},
				{"name":"offset","type":"int256"}]}]}],"outputs":[]}
]`

var (
	erc20ABI              = mustParseABI("erc20", erc20ABIJSON)
	tokenMessengerABI     = mustParseABI("tokenMessenger", tokenMessengerABIJSON)
	messageTransmitterABI = mustParseABI("messageTransmitter", messageTransmitterABIJSON)
	vaultABI              = mustParseABI("vault", vaultABIJSON)
	vaultRouterABI        = mustParseABI("vaultRouter", vaultRouterABIJSON)
)

// ERC20ABI exposes the token fragment for read-side callers.
func ERC20ABI() abi.ABI { return erc20ABI }

// VaultABI exposes the vault fragment for read-side callers.
func VaultABI() abi.ABI { return vaultABI }

// VaultRouterABI exposes the router fragment for read-side callers.
func VaultRouterABI() abi.ABI { return vaultRouterABI }

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid %s ABI: %v", name, err))
	}
	return parsed
}
