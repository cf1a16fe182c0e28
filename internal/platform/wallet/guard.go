package wallet

import (
	"context"
	"fmt"
)

// Guard checks a session before a flow signs anything
type Guard struct {
	expectedChainID int64
	switcher        NetworkSwitcher
}

// NewGuard creates a guard for expectedChainID. switcher may be nil, in which case a session
// on another network is rejected instead of switched.
func NewGuard(expectedChainID int64, switcher NetworkSwitcher) *Guard {
	return &Guard{
		expectedChainID: expectedChainID,
		switcher:        switcher,
	}
}

// ExpectedChainID returns the chain flows must sign on
func (g *Guard) ExpectedChainID() int64 {
	return g.expectedChainID
}

// Require returns a session that is connected and on the expected network
func (g *Guard) Require(ctx context.Context, s Session) (Session, error) {
	if !s.Connected || s.Address == "" {
		return s, ErrNotConnected
	}

	if s.OnExpectedNetwork(g.expectedChainID) {
		return s, nil
	}

	if g.switcher == nil {
		return s, fmt.Errorf("%w: on chain %d, expected %d", ErrWrongNetwork, s.ChainID, g.expectedChainID)
	}

	if err := g.switcher.SwitchNetwork(ctx, g.expectedChainID); err != nil {
		return s, fmt.Errorf("%w: switch to chain %d failed: %v", ErrWrongNetwork, g.expectedChainID, err)
	}

	s.ChainID = g.expectedChainID
	return s, nil
}

// RequireOwner checks the session against a freshly read owner address
func RequireOwner(s Session, owner string) error {
	if !s.Is(owner) {
		return ErrNotOwner
	}
	return nil
}
