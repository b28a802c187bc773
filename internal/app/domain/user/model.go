package user

import "time"

// User is a registered identity in the directory. Users are never deleted;
// only the directory's verify operation mutates them after registration.
type User struct {
	// Identity is the globally unique identity key (wallet address or
	// equivalent opaque identifier supplied by the hosting runtime).
	Identity     string    `json:"identity"`
	DisplayName  string    `json:"display_name"`
	Admin        bool      `json:"admin"`
	Verified     bool      `json:"verified"`
	RegisteredAt time.Time `json:"registered_at"`
}
