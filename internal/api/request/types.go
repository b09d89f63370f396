package request

// SignInRequest is the optional body for starting a sign-in.
// An empty username signs in anonymously.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NameRequest is the request body for renaming the player
type NameRequest struct {
	Name string `json:"name"`
}

// ExperienceRequest is the request body for granting experience
type ExperienceRequest struct {
	Amount int `json:"amount"`
}
