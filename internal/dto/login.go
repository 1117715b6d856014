package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access"`
	RefreshToken string       `json:"refresh"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh"`
}
