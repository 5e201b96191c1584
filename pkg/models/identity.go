package models

// Identity is the verified principal a call executes for. The host decides
// what it means; the ledger only compares and stores it.
type Identity string

func (i Identity) String() string { return string(i) }
