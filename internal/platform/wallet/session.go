package wallet

// Session is the identity a flow acts as. It is passed explicitly into every flow run
// instead of being read from ambient state.
type Session struct {
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
	ChainID   int64  `json:"chain_id"`
}

// NewSession returns a connected session for address on chainID
func NewSession(address string, chainID int64) Session {
	return Session{
		Address:   address,
		Connected: address != "",
		ChainID:   chainID,
	}
}

// OnExpectedNetwork reports whether the session is on the expected chain
func (s Session) OnExpectedNetwork(expected int64) bool {
	return s.ChainID == expected
}

// Is reports whether the session is connected as address (case-insensitive)
func (s Session) Is(address string) bool {
	return s.Connected && address != "" && AddressesEqual(s.Address, address)
}
