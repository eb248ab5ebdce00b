package model

// CtxKeyAuthorizedUser ..
const CtxKeyAuthorizedUser = "ckau"

// CommonResponse is the envelope every dashboard endpoint answers with.
type CommonResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// Fields is set when a submitted form was rejected, keyed by field.
	Fields map[string]string `json:"fields,omitempty"`
}

// Session is the identity of the user driving a client session. It is handed
// to every component that needs to know who it acts for.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
