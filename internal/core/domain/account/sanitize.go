package account

// ForClient returns a copy of the record safe to return to a caller. The
// password hash, expiries and pending changes are always removed. Tokens are
// removed too unless retainTokens is set, which callers may only enable for
// server-originated invocations.
func (u *User) ForClient(retainTokens bool) *User {
	c := *u
	c.PasswordHash = ""
	c.VerifyExpires = nil
	c.ResetExpires = nil
	c.VerifyChanges = nil
	if !retainTokens {
		c.VerifyToken = nil
		c.VerifyShortToken = nil
		c.ResetToken = nil
		c.ResetShortToken = nil
	}
	return &c
}

// ForNotifier returns a copy for the notification dispatcher. Tokens stay in
// place because notifications embed them in verification/reset links; only
// the password hash is removed.
func (u *User) ForNotifier() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}
