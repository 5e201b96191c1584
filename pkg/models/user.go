package models

// User binds a registered username to the identity that last claimed it.
type User struct {
	Account  Identity `json:"account"`
	Username []byte   `json:"username"`
}
