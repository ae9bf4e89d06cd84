package dto

// RegisterRequest represents the user registration request
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,username" example:"jdoe"`
	Email     string `json:"email" binding:"required,email,max=255" example:"jdoe@school.edu"`
	Password  string `json:"password" binding:"required,password" example:"secret123"`
	FirstName string `json:"firstName" binding:"required,max=100" example:"John"`
	LastName  string `json:"lastName" binding:"required,max=100" example:"Doe"`
	RoleType  string `json:"roleType" binding:"required,oneof=STUDENT TEACHER" example:"STUDENT" enums:"STUDENT,TEACHER"`
}

// LoginRequest accepts a username or an email as identifier
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required" example:"jdoe"`
	Password   string `json:"password" binding:"required" example:"secret123"`
}

// RefreshTokenRequest represents the refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// TokenResponse represents the token response
type TokenResponse struct {
	AccessToken      string        `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIs..."`
	RefreshToken     string        `json:"refreshToken" example:"550e8400-e29b-41d4-a716-446655440000"`
	TokenType        string        `json:"tokenType" example:"Bearer"`
	ExpiresIn        int           `json:"expiresIn" example:"3600"`
	RefreshExpiresIn int           `json:"refreshExpiresIn" example:"604800"`
	User             *UserResponse `json:"user,omitempty"`
}
