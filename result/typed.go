package result

import (
	"encoding/json"
	"fmt"
)

// Typed is a Result that carries a decoded payload on success.
type Typed[T any] struct {
	Result
	model    T
	hasModel bool
}

// SuccessWith builds a successful typed result. status must be in [200,300).
func SuccessWith[T any](model T, status int) (Typed[T], error) {
	r, err := Success(status)
	if err != nil {
		return Typed[T]{}, err
	}

	return Typed[T]{Result: r, model: model, hasModel: true}, nil
}

// Lift converts a failure or fault into a typed result without a payload.
// Successes must go through SuccessWith.
func Lift[T any](r Result) (Typed[T], error) {
	if r.IsSuccess() {
		return Typed[T]{}, fmt.Errorf("%w: cannot lift a success without a model", ErrInvalidStatus)
	}

	return Typed[T]{Result: r}, nil
}

// Model returns the payload and whether one is present.
func (t Typed[T]) Model() (T, bool) {
	return t.model, t.hasModel
}

// MarshalJSON implements json.Marshaler.
func (t Typed[T]) MarshalJSON() ([]byte, error) {
	var model any
	if t.hasModel {
		model = t.model
	}

	return json.Marshal(struct {
		envelope
		Model any `json:"Model"`
	}{
		envelope: t.envelope(),
		Model:    model,
	})
}
