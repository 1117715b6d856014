package dto

type RegisterRequest struct {
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
	RecoveryEmail   *string `json:"recoveryEmail,omitempty"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	Address         *string `json:"address,omitempty"`
	Country         *string `json:"country,omitempty"`
}
