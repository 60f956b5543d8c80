package models

import "time"

// Session is a server-side login session. Expired only ever moves from false
// to true.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ExpiresOn time.Time `db:"expires_on" json:"expiresOn"`
	CreatedOn time.Time `db:"created_on" json:"createdOn"`
	UpdatedOn time.Time `db:"updated_on" json:"updatedOn"`
	Expired   bool      `db:"expired" json:"expired"`
}

// Live reports whether the session can still authenticate requests at now.
func (s *Session) Live(now time.Time) bool {
	return s != nil && !s.Expired && now.Before(s.ExpiresOn)
}
