package domain

// ============================================================
// Profile
// ============================================================

// Profile is the user-editable part of an account. Credentials, sessions
// and avatar storage stay with the auth provider.
type Profile struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UpdateUsernameRequest is the body of PATCH /v1/me/username.
type UpdateUsernameRequest struct {
	Username string `json:"username"`
}
