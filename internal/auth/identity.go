package auth

// Identity is the verified caller attached to a request by the session
// middleware. It is only ever constructed from validated token claims.
type Identity struct {
	UserID   string
	Email    string
	Nickname string
}

func IdentityFromClaims(claims *Claims) Identity {
	return Identity{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Nickname: claims.Nickname,
	}
}
