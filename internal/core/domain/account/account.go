package account

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is the account record this service manages credentials for. The
// record itself is owned by the backing user store; workflows only read it
// and patch the credential-related columns.
type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	DialablePhone    string     `json:"dialable_phone,omitempty" db:"dialable_phone"`
	Username         string     `json:"username,omitempty" db:"username"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	IsVerified       bool       `json:"is_verified" db:"is_verified"`
	IsInvitation     bool       `json:"is_invitation" db:"is_invitation"`
	VerifyToken      *string    `json:"verify_token,omitempty" db:"verify_token"`
	VerifyShortToken *string    `json:"verify_short_token,omitempty" db:"verify_short_token"`
	VerifyExpires    *time.Time `json:"verify_expires,omitempty" db:"verify_expires"`
	VerifyChanges    ChangeSet  `json:"verify_changes,omitempty" db:"verify_changes"`
	ResetToken       *string    `json:"reset_token,omitempty" db:"reset_token"`
	ResetShortToken  *string    `json:"reset_short_token,omitempty" db:"reset_short_token"`
	ResetExpires     *time.Time `json:"reset_expires,omitempty" db:"reset_expires"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// IdentityField returns the value of a named identity field.
func (u *User) IdentityField(name string) (string, bool) {
	switch name {
	case FieldEmail:
		return u.Email, true
	case FieldDialablePhone:
		return u.DialablePhone, true
	case FieldUsername:
		return u.Username, true
	default:
		return "", false
	}
}

// Identity field names recognized in identify-by-fields queries and in
// pending identity changes.
const (
	FieldEmail         = "email"
	FieldDialablePhone = "dialablePhone"
	FieldUsername      = "username"
)

// Token query field names. These are accepted by the gateway but never by a
// caller-supplied identity map.
const (
	FieldVerifyToken      = "verifyToken"
	FieldVerifyShortToken = "verifyShortToken"
	FieldResetToken       = "resetToken"
	FieldResetShortToken  = "resetShortToken"
)

// ChangeSet holds pending identity-field changes awaiting verification.
// Stored as JSONB in the user store.
type ChangeSet map[string]string

// Value implements driver.Valuer for JSONB storage.
func (c ChangeSet) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage.
func (c *ChangeSet) Scan(src interface{}) error {
	if src == nil {
		*c = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported change set source type %T", src)
	}
}

// TokenTriple groups a long token, its short companion and their shared
// expiry. The three values are always written together so the record never
// holds a partially set triple.
type TokenTriple struct {
	Token      *string
	ShortToken *string
	Expires    *time.Time
}

// NewTokenTriple builds a fully populated triple expiring at the given time.
func NewTokenTriple(token, shortToken string, expires time.Time) TokenTriple {
	return TokenTriple{Token: &token, ShortToken: &shortToken, Expires: &expires}
}

// ClearedTriple returns an all-null triple, used to consume a token.
func ClearedTriple() TokenTriple {
	return TokenTriple{}
}

// IsSet reports whether the triple holds a usable token.
func (t TokenTriple) IsSet() bool {
	return t.Token != nil && t.ShortToken != nil && t.Expires != nil
}

// Expired reports whether the triple's expiry is in the past. An unset
// triple counts as expired for matching purposes.
func (t TokenTriple) Expired(now time.Time) bool {
	return t.Expires == nil || t.Expires.Before(now)
}

// VerifyTriple returns the record's signup/identity-change token triple.
func (u *User) VerifyTriple() TokenTriple {
	return TokenTriple{Token: u.VerifyToken, ShortToken: u.VerifyShortToken, Expires: u.VerifyExpires}
}

// ResetTriple returns the record's password-reset token triple.
func (u *User) ResetTriple() TokenTriple {
	return TokenTriple{Token: u.ResetToken, ShortToken: u.ResetShortToken, Expires: u.ResetExpires}
}

// Patch is a typed partial update applied through the gateway in a single
// UPDATE. Nil fields are left untouched; a non-nil triple writes all three
// of its columns so a token triple is set or cleared atomically.
type Patch struct {
	IsVerified    *bool
	PasswordHash  *string
	Verify        *TokenTriple
	Reset         *TokenTriple
	VerifyChanges *ChangeSet
	Identity      ChangeSet
}

// IsEmpty reports whether the patch would change nothing.
func (p *Patch) IsEmpty() bool {
	return p.IsVerified == nil && p.PasswordHash == nil && p.Verify == nil &&
		p.Reset == nil && p.VerifyChanges == nil && len(p.Identity) == 0
}

// CallOrigin distinguishes trusted in-process calls from networked ones.
type CallOrigin int

const (
	// OriginServer marks an invocation made by trusted server code.
	OriginServer CallOrigin = iota
	// OriginExternal marks an invocation arriving through the network layer.
	OriginExternal
)

// CallContext carries the origin and, when present, the authenticated
// caller's id into every workflow invocation.
type CallContext struct {
	Origin     CallOrigin
	AuthUserID *uuid.UUID
}

// ServerCall is the context used for trusted in-process invocations.
func ServerCall() CallContext {
	return CallContext{Origin: OriginServer}
}

// Action names accepted by the dispatcher.
const (
	ActionCheckUnique        = "checkUnique"
	ActionResendVerifySignup = "resendVerifySignup"
	ActionVerifySignupLong   = "verifySignupLong"
	ActionVerifySignupShort  = "verifySignupShort"
	ActionSendResetPwd       = "sendResetPwd"
	ActionResetPwdLong       = "resetPwdLong"
	ActionResetPwdShort      = "resetPwdShort"
	ActionPasswordChange     = "passwordChange"
	ActionIdentityChange     = "identityChange"
)

// Request is the dispatch envelope received by the action router.
type Request struct {
	Action          string                 `json:"action" validate:"required"`
	Value           json.RawMessage        `json:"value"`
	NotifierOptions map[string]interface{} `json:"notifierOptions,omitempty"`
}

// CheckUniqueValue is the payload for the checkUnique action.
type CheckUniqueValue struct {
	User  map[string]string `json:"user" validate:"required"`
	OwnID *uuid.UUID        `json:"ownId,omitempty"`
}

// IdentifyValue is the payload for actions that only identify a user.
type IdentifyValue struct {
	User map[string]string `json:"user" validate:"required"`
}

// VerifyLongValue is the payload for verifySignupLong.
type VerifyLongValue struct {
	Token string `json:"token" validate:"required"`
}

// VerifyShortValue is the payload for verifySignupShort.
type VerifyShortValue struct {
	Token string            `json:"token" validate:"required"`
	User  map[string]string `json:"user" validate:"required"`
}

// ResetLongValue is the payload for resetPwdLong.
type ResetLongValue struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResetShortValue is the payload for resetPwdShort.
type ResetShortValue struct {
	Token    string            `json:"token" validate:"required"`
	Password string            `json:"password" validate:"required"`
	User     map[string]string `json:"user" validate:"required"`
}

// PasswordChangeValue is the payload for passwordChange.
type PasswordChangeValue struct {
	User        map[string]string `json:"user" validate:"required"`
	OldPassword string            `json:"oldPassword" validate:"required"`
	Password    string            `json:"password" validate:"required"`
}

// IdentityChangeValue is the payload for identityChange.
type IdentityChangeValue struct {
	User     map[string]string `json:"user" validate:"required"`
	Password string            `json:"password" validate:"required"`
	Changes  map[string]string `json:"changes" validate:"required"`
}
