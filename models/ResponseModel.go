package models

// Pagination is recomputed locally whenever a payload is paginated on our
// side (fallback data, or an upstream that returned the full collection).
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ResponseEnvelope is the canonical wrapper for every successful response.
// Fallback is set when the data came from the demo seed instead of the ERP.
// Degraded is set on writes that were acknowledged locally while the ERP was
// unreachable; front-ends must surface it to the user.
type ResponseEnvelope struct {
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Fallback   bool        `json:"fallback,omitempty"`
	Degraded   bool        `json:"degraded,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ValidateSessionResponse mirrors what POST /api/validate-session returns.
type ValidateSessionResponse struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	ThirdPartyID string `json:"third_party_id,omitempty"`
}
