package types

// NotificationFriendRequest is the only notification kind in the system.
const NotificationFriendRequest = "friend_request"

// User represents an account together with its social state.
// Every field is always present once a User has been built by NewUser or
// normalized by the store.
type User struct {
	// ID is the opaque unique identifier assigned at registration.
	// It is the canonical key for friendships and notifications.
	ID string `json:"id"`

	// Username is the unique, case-sensitive login name.
	Username string `json:"username"`

	// Credential is the opaque password verifier.
	// This field is never exposed in API responses.
	Credential string `json:"credential"`

	// Friends holds the ids of this user's friends. The relation is
	// symmetric across records.
	Friends []string `json:"friends"`

	// Notifications holds pending friend requests in insertion order.
	Notifications []Notification `json:"notifications"`

	// Note is free-form text owned by the user.
	Note string `json:"note"`
}

// Notification is a pending friend request recorded on the target's record.
type Notification struct {
	Type string `json:"type"`
	From string `json:"from"`
}

// NewUser builds a freshly registered user with empty social state.
func NewUser(id, username, credential string) User {
	return User{
		ID:            id,
		Username:      username,
		Credential:    credential,
		Friends:       []string{},
		Notifications: []Notification{},
		Note:          "",
	}
}

// HasFriend reports whether id is in the user's friend list.
func (u User) HasFriend(id string) bool {
	for _, friendID := range u.Friends {
		if friendID == id {
			return true
		}
	}
	return false
}

// PendingFrom returns the index of the pending request from requesterID, or -1.
func (u User) PendingFrom(requesterID string) int {
	for i, n := range u.Notifications {
		if n.Type == NotificationFriendRequest && n.From == requesterID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate slices freely.
func (u User) Clone() User {
	out := u
	out.Friends = append([]string{}, u.Friends...)
	out.Notifications = append([]Notification{}, u.Notifications...)
	return out
}

// Profile is the public view of a user.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Note     string `json:"note"`
}

// Summary is the public view of another user, without private fields.
type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Note: u.Note}
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username}
}

// PendingRequest is a resolved notification ready for display.
type PendingRequest struct {
	From    Summary `json:"from_user"`
	Message string  `json:"message"`
}
