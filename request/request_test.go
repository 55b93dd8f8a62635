package request_test

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/apibuilder/content"
	"github.com/adamwoolhether/apibuilder/request"
	"github.com/adamwoolhether/apibuilder/response"
	"github.com/adamwoolhether/apibuilder/result"
	"github.com/adamwoolhether/apibuilder/uri"
)

type person struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"max=3"`
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

func factory(t *testing.T, doer request.Doer, opts ...request.Option) *request.Factory {
	t.Helper()

	f, err := request.NewFactory(doer, opts...)
	if err != nil {
		t.Fatalf("failed to create factory: %v", err)
	}

	return f
}

func TestBuilder_RoundTrip(t *testing.T) {
	type echo struct {
		Method        string `json:"method"`
		Path          string `json:"path"`
		Query         string `json:"query"`
		Person        string `json:"person"`
		ContentPerson string `json:"contentPerson"`
		Auth          string `json:"auth"`
		Body          person `json:"body"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p person
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echo{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Person:        r.Header.Get("X-Person"),
			ContentPerson: r.Header.Get("X-ContentPerson"),
			Auth:          r.Header.Get("Authorization"),
			Body:          p,
		})
	}))
	defer ts.Close()

	f := factory(t, http.DefaultClient, request.WithBaseURL(ts.URL+"/api"))

	msg, err := f.Post().
		SetURI(func(b *uri.Builder) { b.SetPath("people", "/new/").Add("dry run", true) }).
		SetContent(func(b *content.Builder) (*content.Content, error) { return b.JSON(person{Name: "John", Surname: "Doe"}) }).
		AddHeader(func(h *request.Headers) {
			h.Set("X-Person", "John").AcceptJSON().SetContent("X-ContentPerson", "Doe")
		}).
		AddAuthorizationBearerToken("abc").
		Build(t.Context())
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}

	res := response.AsTypedResult[echo](msg.Send())
	got, ok := res.Model()
	if !ok {
		t.Fatalf("expected success, got %v: %q", res.Kind(), res.Errors())
	}

	exp := echo{
		Method:        http.MethodPost,
		Path:          "/api/people/new",
		Query:         "dry%20run=true",
		Person:        "John",
		ContentPerson: "Doe",
		Auth:          "Bearer abc",
		Body:          person{Name: "John", Surname: "Doe"},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("unexpected echo (-want +got):\n%s", diff)
	}
}

func TestBuilder_URL(t *testing.T) {
	testCases := map[string]struct {
		base string
		uri  func(b *uri.Builder)
		exp  string
	}{
		"base only":          {base: "http://h/api/", uri: func(*uri.Builder) {}, exp: "http://h/api/"},
		"base without slash": {base: "http://h/api", uri: func(b *uri.Builder) { b.SetPath("users") }, exp: "http://h/api/users"},
		"query on base":      {base: "http://h/api", uri: func(b *uri.Builder) { b.Add("name", "jon") }, exp: "http://h/api/?name=jon"},
		"fragment":           {base: "http://h", uri: func(b *uri.Builder) { b.SetPath("a").SetFragment("top") }, exp: "http://h/a#top"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			f := factory(t, http.DefaultClient, request.WithBaseURL(tc.base))

			msg, err := f.Get().SetURI(tc.uri).Build(t.Context())
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if got := msg.Request().URL.String(); got != tc.exp {
				t.Errorf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestBuilder_Bearer(t *testing.T) {
	f := factory(t, http.DefaultClient, request.WithBaseURL("http://h"))

	for _, token := range []string{"abc", "Bearer abc"} {
		msg, err := f.Get().AddAuthorizationBearerToken(token).Build(t.Context())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if got := msg.Request().Header.Values("Authorization"); !cmp.Equal(got, []string{"Bearer abc"}) {
			t.Errorf("token %q: expected single Bearer abc header, got %q", token, got)
		}
	}
}

func TestBuilder_HeadersReplace(t *testing.T) {
	f := factory(t, http.DefaultClient, request.WithBaseURL("http://h"))

	msg, err := f.Get().
		AddHeader(func(h *request.Headers) { h.Set("X-Tag", "a", "b") }).
		AddHeader(func(h *request.Headers) { h.Set("X-Tag", "c") }).
		Build(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got := msg.Request().Header.Values("X-Tag"); !cmp.Equal(got, []string{"c"}) {
		t.Errorf("expected replaced header, got %q", got)
	}
}

func TestBuilder_Errors(t *testing.T) {
	f := factory(t, http.DefaultClient, request.WithBaseURL("http://h"), request.WithValidation())

	testCases := map[string]struct {
		build  func() *request.Builder
		expErr error
	}{
		"content header without content": {
			build: func() *request.Builder {
				return f.Get().AddHeader(func(h *request.Headers) { h.SetContent("Content-Language", "ro") })
			},
			expErr: request.ErrNoContentForHeader,
		},
		"unresolved field key": {
			build: func() *request.Builder {
				return f.Get().SetURI(func(b *uri.Builder) { b.AddField(uri.TagKeys[person]("json"), "Age", 1) })
			},
			expErr: uri.ErrFieldNotFound,
		},
		"unsupported multipart part": {
			build: func() *request.Builder {
				return f.Post().SetContentMultipart(func(b *content.Builder) (*content.Content, error) { return b.Text("x") })
			},
			expErr: content.ErrUnsupportedPart,
		},
		"validation": {
			build: func() *request.Builder {
				return f.Post().SetContent(func(b *content.Builder) (*content.Content, error) { return b.JSON(person{Surname: "Long"}) })
			},
			expErr: result.FieldErrors{},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.build().Build(t.Context())

			if fe, ok := tc.expErr.(result.FieldErrors); ok {
				if !errors.As(err, &fe) {
					t.Fatalf("expected field errors, got: %v", err)
				}
				exp := result.FieldErrors{
					"name":    {"This field is required"},
					"surname": {"surname must be a maximum of 3 characters in length"},
				}
				if diff := cmp.Diff(exp, fe); diff != "" {
					t.Errorf("unexpected field errors (-want +got):\n%s", diff)
				}
				return
			}

			if !errors.Is(err, tc.expErr) {
				t.Errorf("expected %v, got: %v", tc.expErr, err)
			}
		})
	}
}

type trackingBody struct {
	*strings.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestBuilder_InvalidMethodClosesContent(t *testing.T) {
	f := factory(t, http.DefaultClient, request.WithBaseURL("http://h"))

	body := &trackingBody{Reader: strings.NewReader("data")}
	_, err := f.New("BAD METHOD").
		SetContent(func(b *content.Builder) (*content.Content, error) { return b.Stream(body, "text/plain") }).
		Build(t.Context())
	if err == nil {
		t.Fatal("expected an error for an invalid method")
	}

	if !body.closed {
		t.Error("expected the content body to be closed")
	}
}

func TestBuilder_Multipart(t *testing.T) {
	var got []string
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return nil, err
		}

		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			b, _ := io.ReadAll(p)
			got = append(got, p.Header.Get("Content-Type")+":"+string(b))
		}

		return &http.Response{StatusCode: http.StatusNoContent, Status: "204 No Content", Body: http.NoBody}, nil
	})

	f := factory(t, doer, request.WithBaseURL("http://h"))

	msg, err := f.Put().SetContentMultipart(
		func(b *content.Builder) (*content.Content, error) { return b.Bytes([]byte("one"), "application/octet-stream") },
		func(b *content.Builder) (*content.Content, error) { return b.Stream(strings.NewReader("two"), "text/csv") },
	).Build(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if res := msg.Send().AsResult(); !res.IsSuccess() {
		t.Fatalf("expected success, got %v", res.Kind())
	}

	exp := []string{"application/octet-stream:one", "text/csv:two"}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("unexpected parts (-want +got):\n%s", diff)
	}
}

func TestMessage_SendTransportError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	f := factory(t, doerFunc(func(*http.Request) (*http.Response, error) { return nil, boom }), request.WithBaseURL("http://h"))

	msg, err := f.Delete().Build(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	resp := msg.Send()
	if !errors.Is(resp.Err(), boom) {
		t.Fatalf("expected captured transport error, got: %v", resp.Err())
	}

	res := resp.AsResult()
	errs := res.Errors()
	if !res.IsFaulted() || len(errs) < 2 {
		t.Fatalf("expected fault with msg and stack, got %v %q", res.Kind(), errs)
	}
	if errs[0] != "msg : "+boom.Error() || !strings.HasPrefix(errs[1], "stack : ") {
		t.Errorf("unexpected fault entries %q", errs)
	}
}

func TestNewFactory_Options(t *testing.T) {
	testCases := map[string]struct {
		doer request.Doer
		opts []request.Option
	}{
		"nil doer":         {doer: nil},
		"relative base":    {doer: http.DefaultClient, opts: []request.Option{request.WithBaseURL("/api")}},
		"nil formatter":    {doer: http.DefaultClient, opts: []request.Option{request.WithFormatter("text/plain", nil)}},
		"empty media type": {doer: http.DefaultClient, opts: []request.Option{request.WithFormatter("", func(io.Reader, any) error { return nil })}},
		"nil logger":       {doer: http.DefaultClient, opts: []request.Option{request.WithLogger(nil)}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := request.NewFactory(tc.doer, tc.opts...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFactory_NoBaseURL(t *testing.T) {
	f := factory(t, http.DefaultClient)

	if _, err := f.Get().SetURI(func(b *uri.Builder) { b.SetPath("a") }).Build(t.Context()); err == nil {
		t.Error("expected relative uri without base to fail")
	}
}

func TestFactory_WithFormatter(t *testing.T) {
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode:    http.StatusOK,
			Status:        "200 OK",
			Header:        http.Header{"Content-Type": {"application/vnd.csv"}},
			Body:          io.NopCloser(strings.NewReader("a,b")),
			ContentLength: 3,
		}, nil
	})

	csv := func(body io.Reader, dst any) error {
		b, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		*(dst.(*[]string)) = strings.Split(string(b), ",")
		return nil
	}

	f := factory(t, doer, request.WithBaseURL("http://h"), request.WithFormatter("application/vnd.csv", csv))

	msg, err := f.Get().Build(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, err := response.AsModel[[]string](msg.Send())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("unexpected model (-want +got):\n%s", diff)
	}
}
