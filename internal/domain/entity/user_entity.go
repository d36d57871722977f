package entity

// User is a bar manager account.
// Password holds a bcrypt hash and is never serialized.
//
// BarID, when set, names the only bar this user may update.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	IsBouncer bool   `json:"isBouncer"`
	BarID     *int64 `json:"barId"`
}

// NewUser is the input for creating a user; the store assigns the ID
// and marks every user as a bouncer.
type NewUser struct {
	Username string
	Password string // already hashed
	BarID    *int64
}

// Manages reports whether the user is the manager of the given bar.
func (u *User) Manages(barID int64) bool {
	return u != nil && u.BarID != nil && *u.BarID == barID
}
