package common

// Response structures
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// NewErrorResponse builds the failure envelope sent by every JSON handler.
func NewErrorResponse(code, message string, err error) Response {
	apiErr := &APIError{
		Code:    code,
		Message: message,
	}
	if err != nil {
		apiErr.Detail = err.Error()
	}
	return Response{Success: false, Error: apiErr}
}
