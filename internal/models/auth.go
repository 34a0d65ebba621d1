package models

// LoginCredentials is the body of POST /login-check.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials is the body of POST /register.
type RegisterCredentials struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResponse is returned by /login-check and /token/refresh.
type AuthResponse struct {
	Token           string   `json:"token"`
	TokenExpiration int64    `json:"token_expiration"`
	RefreshToken    string   `json:"refresh_token"`
	UserRoles       []string `json:"user_roles,omitempty"`
	User            *User    `json:"user"`
}

// RefreshRequest is the body of POST /token/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidationError names one rejected field.
type ValidationError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ProblemDetails is the error body returned by the API on 4xx responses.
type ProblemDetails struct {
	StatusCode    int               `json:"statusCode"`
	Instance      string            `json:"instance"`
	Title         string            `json:"title"`
	InvalidParams []ValidationError `json:"invalidParams,omitempty"`
}

// FieldErrors flattens InvalidParams into a name -> reason map.
func (p *ProblemDetails) FieldErrors() map[string]string {
	if p == nil || len(p.InvalidParams) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.InvalidParams))
	for _, v := range p.InvalidParams {
		out[v.Name] = v.Reason
	}
	return out
}
