package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/adamwoolhether/apibuilder/result"
)

// AsResult classifies the response. It never fails: transport errors,
// unreadable bodies and panics all end up as a fault. The body is closed.
func (r *Response) AsResult() (res result.Result) {
	defer r.recoverFault(&res)
	defer r.Close()

	if r.err != nil {
		return result.FaultFromError(r.err)
	}

	if r.IsSuccess() {
		success, err := result.Success(r.StatusCode())
		if err != nil {
			return result.FaultFromError(err)
		}
		return success
	}

	return r.classifyFailure()
}

// AsTypedResult classifies the response and, on success, decodes the
// body into a T. A decoding failure becomes a fault.
func AsTypedResult[T any](r *Response) (res result.Typed[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			res = lift[T](r.panicFault(rec))
		}
	}()
	defer r.Close()

	if r.err != nil || !r.IsSuccess() {
		var base result.Result
		if r.err != nil {
			base = result.FaultFromError(r.err)
		} else {
			base = r.classifyFailure()
		}
		return lift[T](base)
	}

	var model T
	if r.reader.HasContent() {
		if err := r.reader.Decode(&model); err != nil {
			r.logger.Debug("decoding success payload", "status", r.StatusCode(), "error", err)
			return lift[T](result.FaultFromError(fmt.Errorf("decoding payload: %w", err)))
		}
	}

	typed, err := result.SuccessWith(model, r.StatusCode())
	if err != nil {
		return lift[T](result.FaultFromError(err))
	}

	return typed
}

// lift only ever receives non-success results.
func lift[T any](res result.Result) result.Typed[T] {
	typed, err := result.Lift[T](res)
	if err != nil {
		typed, _ = result.Lift[T](result.FaultFromError(err))
	}

	return typed
}

func (r *Response) recoverFault(res *result.Result) {
	if rec := recover(); rec != nil {
		*res = r.panicFault(rec)
	}
}

func (r *Response) panicFault(rec any) result.Result {
	r.logger.Error("classifying response panicked", "panic", rec)

	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("%v", rec)
	}

	return result.FaultFromError(fmt.Errorf("classifying response: %w", err))
}

// classifyFailure inspects a non-2xx body: structured error payloads
// first, then raw text, then the reason phrase.
func (r *Response) classifyFailure() result.Result {
	code := r.StatusCode()

	body, err := r.failureBody()
	if err != nil {
		r.logger.Debug("reading failure body", "status", code, "error", err)
		return result.FaultFromError(err)
	}

	if r.isStructured(body) {
		fields, messages, err := parseErrorPayload(body)
		switch {
		case err != nil:
			return result.FaultFromError(fmt.Errorf("parsing error payload: %w", err))
		case fields != nil:
			return failFields(code, fields)
		case messages != nil:
			return fail(code, messages...)
		}
		r.logger.Debug("unrecognized error payload, using raw text", "status", code)
	}

	if text := string(body); strings.TrimSpace(text) != "" {
		return fail(code, text)
	}

	return fail(code, r.ReasonPhrase())
}

func (r *Response) failureBody() ([]byte, error) {
	if !r.reader.HasContent() {
		return nil, nil
	}

	b, err := r.reader.Bytes()
	if err != nil {
		return nil, fmt.Errorf("reading error payload: %w", err)
	}

	return b, nil
}

func (r *Response) isStructured(body []byte) bool {
	mediaType, _, err := r.reader.MediaType()
	if err != nil || !isJSON(mediaType) {
		return false
	}

	trimmed := bytes.TrimSpace(body)

	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}

func fail(code int, messages ...string) result.Result {
	if code == http.StatusInternalServerError {
		return result.Fault(messages...)
	}

	res, err := result.Fail(code, messages...)
	if err != nil {
		return result.FaultFromError(err)
	}

	return res
}

func failFields(code int, fields result.FieldErrors) result.Result {
	if code == http.StatusInternalServerError {
		return result.FaultFields(fields)
	}

	res, err := result.FailFields(code, fields)
	if err != nil {
		return result.FaultFromError(err)
	}

	return res
}

// fieldError is the element of a [{"field":"...","error":"..."}] payload.
type fieldError struct {
	Field *string `json:"field"`
	Err   *string `json:"error"`
}

// parseErrorPayload recognizes the JSON error shapes servers return:
//
//	["msg", ...]                        messages
//	[{"field": "f", "error": "msg"}]    field errors
//	{"f": ["msg", ...]}                 field errors
//
// A syntax error is returned as an error. A valid document in any other
// shape, including {} and {"error": "msg"}, returns all nils.
func parseErrorPayload(body []byte) (result.FieldErrors, []string, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New("invalid json: trailing data after document")
	}

	switch v := doc.(type) {
	case []any:
		if messages, ok := stringList(v); ok {
			return nil, messages, nil
		}

		var list []fieldError
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, nil, nil
		}
		fields := make(result.FieldErrors)
		for _, fe := range list {
			if fe.Field == nil || fe.Err == nil {
				return nil, nil, nil
			}
			fields[*fe.Field] = append(fields[*fe.Field], *fe.Err)
		}
		return fields, nil, nil

	case map[string]any:
		if len(v) == 0 {
			return nil, nil, nil
		}

		fields := make(result.FieldErrors, len(v))
		for field, val := range v {
			msgs, ok := val.([]any)
			if !ok {
				return nil, nil, nil
			}
			list, ok := stringList(msgs)
			if !ok {
				return nil, nil, nil
			}
			fields[field] = list
		}
		return fields, nil, nil
	}

	return nil, nil, nil
}

func stringList(v []any) ([]string, bool) {
	out := make([]string, 0, len(v))
	for _, item := range v {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}

	return out, true
}
