package entity

// Session is a logged-in user owning one mapping. Timestamps are unix
// seconds.
type Session struct {
	ID         string
	Username   string
	CreatedAt  int64
	LastSeenAt int64
}
