package session

// Response is the {success, data?, error?} envelope every command surface
// operation returns to the front-end.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data}
}

func fail[T any](err error) Response[T] {
	return Response[T]{Success: false, Error: err.Error()}
}
