package wallet

import "context"

// NetworkSwitcher moves the signing wallet to another chain
type NetworkSwitcher interface {
	SwitchNetwork(ctx context.Context, chainID int64) error
}
