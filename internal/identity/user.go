package identity

// User is the signed-in principal as reported by the identity provider.
// The service never mutates it; a new value is produced on every auth change.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
