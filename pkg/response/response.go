package response

// Error kinds carried in error responses so clients can branch without parsing messages.
const (
	KindValidation = "validation"
	KindState      = "state"
	KindNotFound   = "not_found"
	KindAuth       = "auth"
	KindSchema     = "schema"
	KindConnection = "connection"
	KindInternal   = "internal"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Kind       string      `json:"kind,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorKind is Error with the error kind set.
func ErrorKind(statusCode int, kind, err string) Response {
	r := Error(statusCode, err)
	r.Kind = kind
	return r
}
