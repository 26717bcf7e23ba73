// Package types is the object model over the Empyreal API. Every method that
// reaches the network takes a context carrying the session installed with
// client.WithClient.
package types

import "strconv"

// Network is an EVM chain, identified by its chain id
type Network int64

const (
	Ethereum Network = 1
)

var networkNames = map[Network]string{
	Ethereum: "Ethereum",
}

// ChainID returns the numeric chain id
func (n Network) ChainID() int64 {
	return int64(n)
}

func (n Network) String() string {
	if name, ok := networkNames[n]; ok {
		return name
	}
	return "chain " + strconv.FormatInt(int64(n), 10)
}

// Supported reports whether the SDK knows the network
func (n Network) Supported() bool {
	_, ok := networkNames[n]
	return ok
}
