package dto

type PasswordChangeRequest struct {
	OldPassword        string `json:"oldPassword"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token              string `json:"token"`
	UserID             string `json:"userId"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
}

type EmailVerificationRequest struct {
	Email string `json:"email"`
}

type EmailVerificationConfirmRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}
