package client

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Wire records are the one canonical schema per entity. Shape differences
// between API versions are absorbed by the decoders in this file.

// TokenRecord is an ERC20 token as the API describes it
type TokenRecord struct {
	ID       uuid.UUID      `json:"id"`
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals int            `json:"decimals"`
	ChainID  int64          `json:"chainId"`
}

// WalletType is how a wallet's key is held
type WalletType string

const (
	WalletMnemonic     WalletType = "mnemonic"
	WalletPrivateKey   WalletType = "pk"
	WalletEnclave      WalletType = "enclave"
	WalletNoncustodial WalletType = "noncustodial"
)

// Secret holds a credential that must never be printed or serialized
type Secret string

const redacted = "[redacted]"

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON always writes null so secrets are not persisted by accident
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Reveal returns the raw value
func (s Secret) Reveal() string {
	return string(s)
}

// WalletRecord is a wallet as the API describes it
type WalletRecord struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Address    common.Address `json:"address"`
	Type       WalletType     `json:"type"`
	GroupID    *string        `json:"groupId,omitempty"`
	UserID     *uuid.UUID     `json:"userId,omitempty"`
	AppID      *uuid.UUID     `json:"appId,omitempty"`
	PrivateKey Secret         `json:"privateKey,omitempty"`
}

// Note is a wallet note value, either text or an integer
type Note struct {
	text  string
	num   int64
	isNum bool
}

// TextNote makes a string note
func TextNote(s string) Note { return Note{text: s} }

// IntNote makes an integer note
func IntNote(n int64) Note { return Note{num: n, isNum: true} }

// Int returns the integer value when the note is numeric
func (n Note) Int() (int64, bool) { return n.num, n.isNum }

func (n Note) String() string {
	if n.isNum {
		return strconv.FormatInt(n.num, 10)
	}
	return n.text
}

func (n Note) MarshalJSON() ([]byte, error) {
	if n.isNum {
		return []byte(strconv.FormatInt(n.num, 10)), nil
	}
	return json.Marshal(n.text)
}

func (n *Note) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch r.Type {
	case gjson.String:
		*n = TextNote(r.Str)
	case gjson.Number:
		v, err := strconv.ParseInt(r.Raw, 10, 64)
		if err != nil {
			return fmt.Errorf("note %s is not an integer", r.Raw)
		}
		*n = IntNote(v)
	default:
		return fmt.Errorf("note must be a string or integer, got %s", r.Raw)
	}
	return nil
}

// WalletData is the app-scoped data attached to a wallet
type WalletData struct {
	Archived bool            `json:"archived"`
	Notes    map[string]Note `json:"notes"`
}

// UserType classifies where a user came from
type UserType int

const (
	UserTelegram UserType = iota + 1
	UserUnclassified
)

func (t UserType) String() string {
	switch t {
	case UserTelegram:
		return "telegram"
	case UserUnclassified:
		return "unclassified"
	default:
		return "unknown"
	}
}

// UnmarshalJSON accepts the numeric form and the name
func (t *UserType) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch r.Type {
	case gjson.Null:
		*t = 0
	case gjson.Number:
		*t = UserType(r.Int())
	case gjson.String:
		switch strings.ToLower(r.Str) {
		case "telegram":
			*t = UserTelegram
		case "unclassified":
			*t = UserUnclassified
		default:
			return fmt.Errorf("unknown user type %q", r.Str)
		}
	default:
		return fmt.Errorf("invalid user type %s", r.Raw)
	}
	return nil
}

// UserRecord is an application user
type UserRecord struct {
	ID         uuid.UUID              `json:"id"`
	Type       UserType               `json:"type,omitempty"`
	Name       string                 `json:"name"`
	TelegramID *string                `json:"telegramId,omitempty"`
	IsNewUser  bool                   `json:"isNewUser"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// VaultType is the accounting mode of a vault
type VaultType int

const (
	// VaultBank keeps each deposit independent, like wrapping
	VaultBank VaultType = iota + 1
	// VaultShared spreads earnings and losses by share
	VaultShared
)

func (t VaultType) String() string {
	switch t {
	case VaultBank:
		return "bank"
	case VaultShared:
		return "vault"
	default:
		return "unknown"
	}
}

// ParseVaultType parses "bank" or "vault"
func ParseVaultType(s string) (VaultType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bank", "1":
		return VaultBank, nil
	case "vault", "2":
		return VaultShared, nil
	}
	return 0, fmt.Errorf("unknown vault type %q", s)
}

func (t *VaultType) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch r.Type {
	case gjson.Number:
		*t = VaultType(r.Int())
		return nil
	case gjson.String:
		v, err := ParseVaultType(r.Str)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	return fmt.Errorf("invalid vault type %s", r.Raw)
}

// VaultRecord is a pooled-fund vault owned by the application
type VaultRecord struct {
	AppID       uuid.UUID   `json:"appId"`
	WalletID    uuid.UUID   `json:"walletId"`
	Token       TokenRecord `json:"token"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        VaultType   `json:"type"`
	Balance     float64     `json:"balance"`
	Shares      float64     `json:"shares"`
}

// VaultPosition is one user's stake in a vault
type VaultPosition struct {
	VaultID uuid.UUID `json:"vaultId"`
	UserID  uuid.UUID `json:"userId"`
	Name    string    `json:"name,omitempty"`
	Shares  float64   `json:"shares"`
	Balance float64   `json:"balance"`
}

// ApplicationRecord is the builder's application. Fee fields are optional
// because they come and go between API versions.
type ApplicationRecord struct {
	ID                  uuid.UUID     `json:"id"`
	Name                string        `json:"name"`
	Type                string        `json:"type"`
	Tier                string        `json:"tier"`
	APIKey              Secret        `json:"apiKey,omitempty"`
	SwapFee             *int64        `json:"swapFee,omitempty"`
	FeeCollectionAmount *int64        `json:"feeCollectionAmount,omitempty"`
	TransferFee         *int64        `json:"transferFee,omitempty"`
	MinFee              *int64        `json:"minFee,omitempty"`
	MaxFee              *int64        `json:"maxFee,omitempty"`
	RequestCount        int64         `json:"requestCount"`
	Owner               *UserRecord   `json:"owner,omitempty"`
	AppWallet           *WalletRecord `json:"appWallet,omitempty"`
}

// PairRecord is an AMM liquidity pair
type PairRecord struct {
	FactoryAddress  common.Address `json:"factoryAddress"`
	Token0          TokenRecord    `json:"token0"`
	Token1          TokenRecord    `json:"token1"`
	PairAddress     common.Address `json:"pairAddress"`
	Index           int64          `json:"index"`
	FeePercentage   *float64       `json:"feePercentage"`
	ChainID         int64          `json:"chainId"`
	BlockNumber     uint64         `json:"blockNumber"`
	TransactionHash string         `json:"transactionHash"`
}

// RouteRecord is a priced route from a token to WETH/USDC
type RouteRecord struct {
	Path          []common.Address `json:"path"`
	Fees          []int64          `json:"fees,omitempty"`
	PairAddresses []common.Address `json:"pair_addresses"`
	EthPrice      float64          `json:"eth_price"`
	USDCPrice     float64          `json:"usdc_price"`
}

// LiquidityRecord is the reserve snapshot of a pair
type LiquidityRecord struct {
	Token0Balance *big.Int
	Token0Price   *float64
	Token1Balance *big.Int
	Token1Price   *float64
}

// TaxesRecord is the buy/sell tax of trading token0 against token1
type TaxesRecord struct {
	BuyTax  float64 `json:"buyTax"`
	SellTax float64 `json:"sellTax"`
}

// SecurityRecord is a token risk report
type SecurityRecord struct {
	AntiWhaleModifiable     bool     `json:"antiWhaleModifiable"`
	BuyTax                  float64  `json:"buyTax"`
	SellTax                 float64  `json:"sellTax"`
	CanTakeBackOwnership    bool     `json:"canTakeBackOwnership"`
	CannotBuy               bool     `json:"cannotBuy"`
	CannotSellAll           bool     `json:"cannotSellAll"`
	CreatorAddress          string   `json:"creatorAddress"`
	CreatorBalance          float64  `json:"creatorBalance"`
	CreatorPercent          float64  `json:"creatorPercent"`
	HolderCount             int64    `json:"holderCount"`
	HoneypotWithSameCreator bool     `json:"honeypotWithSameCreator"`
	IsAntiWhale             bool     `json:"isAntiWhale"`
	IsBlacklisted           bool     `json:"isBlacklisted"`
	IsHoneypot              bool     `json:"isHoneypot"`
	IsMintable              bool     `json:"isMintable"`
	IsOpenSource            bool     `json:"isOpenSource"`
	IsProxy                 bool     `json:"isProxy"`
	IsWhitelisted           bool     `json:"isWhitelisted"`
	LPHolderCount           int64    `json:"lpHolderCount"`
	LPTotalSupply           float64  `json:"lpTotalSupply"`
	OwnerAddress            string   `json:"ownerAddress"`
	OwnerBalance            float64  `json:"ownerBalance"`
	OwnerChangeBalance      bool     `json:"ownerChangeBalance"`
	OwnerPercent            float64  `json:"ownerPercent"`
	TotalSupply             *float64 `json:"total_supply,omitempty"`
	TradingCooldown         bool     `json:"tradingCooldown"`
	TransferPausable        bool     `json:"transferPausable"`
}

// SimulationRecord is the estimated output of a simulated swap
type SimulationRecord struct {
	Token     TokenRecord
	AmountOut *big.Int
}

// SwapResult is the outcome of a submitted swap. HasHash is false when the
// response held no transaction hash; Raw then carries the full receipt.
type SwapResult struct {
	TxHash  string
	HasHash bool
	Raw     json.RawMessage
}

// BlockTag selects the block a query is evaluated at
type BlockTag struct {
	number *uint64
}

// Latest is the most recent block
func Latest() BlockTag { return BlockTag{} }

// AtBlock pins a query to block n
func AtBlock(n uint64) BlockTag { return BlockTag{number: &n} }

// Number returns the pinned block, if any
func (b BlockTag) Number() (uint64, bool) {
	if b.number == nil {
		return 0, false
	}
	return *b.number, true
}

func (b BlockTag) String() string {
	if b.number == nil {
		return "latest"
	}
	return strconv.FormatUint(*b.number, 10)
}

func (b BlockTag) MarshalJSON() ([]byte, error) {
	if b.number == nil {
		return []byte(`"latest"`), nil
	}
	return []byte(strconv.FormatUint(*b.number, 10)), nil
}

// MaxApproval returns 2^256-1, a fresh value on every call
func MaxApproval() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}

// bigIntField reads an integer that may be encoded as a JSON number or a decimal string
func bigIntField(body []byte, path string) (*big.Int, error) {
	r := gjson.ParseBytes(body)
	if path != "" {
		r = r.Get(path)
	}
	return parseBigInt(r, path)
}

func parseBigInt(r gjson.Result, name string) (*big.Int, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return nil, fmt.Errorf("missing %s", name)
	}
	s := strings.TrimSpace(r.String())
	if r.Type == gjson.Number {
		s = r.Raw
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		// Scientific notation from a float encoder.
		f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %s for %s", r.Raw, name)
		}
		v, _ = f.Int(nil)
	}
	return v, nil
}

// txHash extracts a transaction hash from a bare string or an object payload
func txHash(body []byte) (string, error) {
	r := gjson.ParseBytes(body)
	if r.Type == gjson.String {
		return r.Str, nil
	}
	for _, key := range []string{"transactionHash", "txHash", "hash", "tx"} {
		if v := r.Get(key); v.Type == gjson.String {
			return v.Str, nil
		}
	}
	return "", fmt.Errorf("no transaction hash in response %s", truncate(body))
}

func truncate(body []byte) string {
	const max = 120
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// listField decodes a list that may be bare or wrapped under key
func listField[T any](body []byte, key string) ([]T, error) {
	r := gjson.ParseBytes(body)
	if !r.IsArray() {
		r = r.Get(key)
	}
	out := []T{}
	if !r.Exists() || r.Type == gjson.Null {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.Raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// idField reads an identifier that may be a bare string or under one of keys
func idField(body []byte, keys ...string) (uuid.UUID, error) {
	r := gjson.ParseBytes(body)
	if r.Type != gjson.String {
		for _, key := range keys {
			if v := r.Get(key); v.Type == gjson.String {
				r = v
				break
			}
		}
	}
	if r.Type != gjson.String {
		return uuid.Nil, fmt.Errorf("no id in response %s", truncate(body))
	}
	return uuid.Parse(r.Str)
}
