package domain

// Session identifies the store a request acts on. It is rebuilt from the
// context token on every request and never persisted.
type Session struct {
	StoreHash   string
	AccessToken string
}
