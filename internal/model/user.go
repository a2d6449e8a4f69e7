package model

// User represents the authenticated account as returned by the
// `/users/me` and `/auth/login` endpoints.
type User struct {
	// ID is the unique identifier for this user.
	ID string `json:"id"`

	// Email is the account's login email address.
	Email string `json:"email"`

	// FirstName is the user's given name, if set.
	FirstName string `json:"firstName,omitempty"`

	// LastName is the user's family name, if set.
	LastName string `json:"lastName,omitempty"`

	// Age is the user's age in years, if set.
	Age int `json:"age,omitempty"`

	// Gender is the user's self-reported gender, if set.
	Gender string `json:"gender,omitempty"`

	// Avatar is a URL to the user's profile picture, if set.
	Avatar string `json:"avatar,omitempty"`

	// IsVerified indicates whether the account's email has been verified.
	IsVerified bool `json:"isVerified"`

	// CreatedAt is the account creation time in RFC 3339 form.
	CreatedAt string `json:"createdAt"`

	// UpdatedAt is the last profile update time in RFC 3339 form.
	UpdatedAt string `json:"updatedAt"`
}

// DisplayName returns the friendliest name available for the user:
// first and last name when present, otherwise the email address.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// AuthTokens is the access/refresh token pair issued by the auth endpoints.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the payload of a successful `POST /auth/login`.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	CSRFToken    string `json:"csrfToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// RegisterResponse is the payload of a successful `POST /auth/register`.
type RegisterResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	IsVerified   bool   `json:"isVerified"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterPayload is the request body for `POST /auth/register`.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserPayload is the request body for `PATCH /users/me`.
// Nil fields are omitted and left unchanged server-side.
type UpdateUserPayload struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Gender    *string `json:"gender,omitempty"`
}

// ChangePasswordPayload is the request body for `PATCH /auth/password`.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
