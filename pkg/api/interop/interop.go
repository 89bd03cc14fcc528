package interop

import "fmt"

const (
	KindValidation     = "validation"
	KindFormat         = "format"
	KindAuthentication = "authentication"
	KindNotFound       = "not_found"
)

type APIResponse[E any] struct {
	Success bool    `json:"success"`
	Data    E       `json:"data,omitempty"`
	Error   *string `json:"error,omitempty"`
	Kind    string  `json:"kind,omitempty"`
}

func NewResponse[E any](data E) *APIResponse[E] {
	return &APIResponse[E]{Success: true, Data: data}
}

func NewErrorResponse(err any) *APIResponse[any] {
	return NewKindedErrorResponse("", err)
}

// NewKindedErrorResponse tags the error so clients can tell "cannot decrypt"
// apart from malformed input without parsing the message.
func NewKindedErrorResponse(kind string, err any) *APIResponse[any] {
	message := fmt.Sprintf("%s", err)
	return &APIResponse[any]{Success: false, Error: &message, Kind: kind}
}
