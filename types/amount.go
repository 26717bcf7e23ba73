package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned when dividing by a zero integer or amount
var ErrDivisionByZero = errors.New("division by zero")

// DefaultDecimals is the scale of amounts built without a token
const DefaultDecimals = 18

// TokenAmount is a raw on-chain integer and the decimal scale it is expressed in.
// When Token is set, Decimals equals Token.Decimals.
type TokenAmount struct {
	Amount   *big.Int
	Decimals int
	Token    *Token
}

// NewAmount builds an amount of token. A nil token gives DefaultDecimals.
func NewAmount(raw *big.Int, token *Token) TokenAmount {
	if raw == nil {
		raw = new(big.Int)
	}
	if token == nil {
		return TokenAmount{Amount: raw, Decimals: DefaultDecimals}
	}
	return TokenAmount{Amount: raw, Decimals: token.Decimals, Token: token}
}

// Format returns Amount / 10^Decimals rounded half away from zero to precision places
func (a TokenAmount) Format(precision int32) decimal.Decimal {
	return a.Decimal().Round(precision)
}

// Decimal returns the exact scaled value
func (a TokenAmount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.raw(), -int32(a.Decimals))
}

// MulInt multiplies the raw amount by n
func (a TokenAmount) MulInt(n int64) TokenAmount {
	return a.with(new(big.Int).Mul(a.raw(), big.NewInt(n)))
}

// DivInt floor-divides the raw amount by n
func (a TokenAmount) DivInt(n int64) (TokenAmount, error) {
	if n == 0 {
		return TokenAmount{}, ErrDivisionByZero
	}
	return a.with(floorDiv(a.raw(), big.NewInt(n))), nil
}

// MulBy multiplies by the ratio o.Amount / 10^o.Decimals, keeping the receiver's scale
func (a TokenAmount) MulBy(o TokenAmount) TokenAmount {
	num := new(big.Int).Mul(a.raw(), o.raw())
	return a.with(floorDiv(num, pow10(o.Decimals)))
}

// DivBy divides by the ratio o.Amount / 10^o.Decimals, keeping the receiver's scale
func (a TokenAmount) DivBy(o TokenAmount) (TokenAmount, error) {
	if o.raw().Sign() == 0 {
		return TokenAmount{}, ErrDivisionByZero
	}
	num := new(big.Int).Mul(a.raw(), pow10(o.Decimals))
	return a.with(floorDiv(num, o.raw())), nil
}

func (a TokenAmount) String() string {
	if a.Token != nil {
		return fmt.Sprintf("%s: %s", a.Token.Name, a.Decimal().String())
	}
	return "Amount: " + a.Decimal().String()
}

func (a TokenAmount) raw() *big.Int {
	if a.Amount == nil {
		return new(big.Int)
	}
	return a.Amount
}

func (a TokenAmount) with(amount *big.Int) TokenAmount {
	return TokenAmount{Amount: amount, Decimals: a.Decimals, Token: a.Token}
}

func pow10(n int) *big.Int {
	if n <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// floorDiv rounds toward negative infinity; big.Int.Quo truncates and Div is Euclidean
func floorDiv(x, y *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(x, y, new(big.Int))
	if m.Sign() != 0 && (m.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}
