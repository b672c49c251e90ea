package types

// Account is the native-balance record of an identity. Native units pay the
// storage deposits that back every record an identity creates.
type Account struct {
	Nonce   uint64 `json:"nonce"`
	Balance uint64 `json:"balance"`
}

// Clone returns a copy safe for mutation.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}
