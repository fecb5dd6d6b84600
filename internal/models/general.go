package models

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func NewErrorResponse(code string, err error) *ErrorResponse {
	return &ErrorResponse{Code: code, Error: err.Error()}
}
