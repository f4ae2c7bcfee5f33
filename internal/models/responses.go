package models

// LoginResponse represents the response to a successful login or refresh
type LoginResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
	RefreshToken string `json:"refresh_token" example:"dG9rZW4uLi4="`
	ExpiresIn    int64  `json:"expires_in" example:"900"`
}

// ChangePasswordResponse reports how many other sessions were terminated
type ChangePasswordResponse struct {
	Message          string `json:"message"`
	LoggedOutDevices int    `json:"logged_out_devices"`
}

// LogoutAllResponse reports how many sessions were terminated
type LogoutAllResponse struct {
	LoggedOutDevices int `json:"logged_out_devices"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}
