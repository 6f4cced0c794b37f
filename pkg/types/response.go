package types

// Envelope is the uniform response shape shared by the HTTP gateway and the
// inventory RPC worker: status is "success" or "error", message carries the
// human-readable error text (null on success), data carries the payload.
type Envelope struct {
	Status  string  `json:"status"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Success wraps a payload in a success envelope.
func Success(data any) Envelope {
	return Envelope{Status: StatusSuccess, Message: nil, Data: data}
}

// Failure wraps a message in an error envelope.
func Failure(message string) Envelope {
	msg := message
	return Envelope{Status: StatusError, Message: &msg, Data: nil}
}
