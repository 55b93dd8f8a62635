package apibuilder_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/apibuilder"
	"github.com/adamwoolhether/apibuilder/client"
	"github.com/adamwoolhether/apibuilder/content"
	"github.com/adamwoolhether/apibuilder/request"
	"github.com/adamwoolhether/apibuilder/response"
	"github.com/adamwoolhether/apibuilder/uri"
)

func ExampleNewClient() {
	c, err := apibuilder.NewClient(
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("example/1.0"),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = c
	fmt.Println("client created")
	// Output: client created
}

func ExampleNew() {
	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":7,"name":%q}`, r.URL.Query().Get("name"))
	}))
	defer ts.Close()

	f, err := apibuilder.New(ts.URL+"/v1", client.WithRequestID())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	msg, err := f.Get().
		SetURI(func(b *uri.Builder) { b.SetPath("users", "search").Add("name", "Ana") }).
		AddHeader(func(h *request.Headers) { h.AcceptJSON() }).
		Build(context.Background())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	res := response.AsTypedResult[user](msg.Send())
	u, _ := res.Model()

	fmt.Println(res.Kind(), u.ID, u.Name)
	// Output: success 7 Ana
}

func ExampleNewFactory() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"name":["is required"]}`)
	}))
	defer ts.Close()

	f, _ := apibuilder.NewFactory(http.DefaultClient, request.WithBaseURL(ts.URL))

	msg, _ := f.Post().
		SetContent(func(b *content.Builder) (*content.Content, error) { return b.JSON(map[string]string{}) }).
		Build(context.Background())

	res := msg.Send().AsResult()

	fmt.Println(res.Kind(), res.Status(), res.FieldErrors()["name"])
	// Output: failure 400 [is required]
}
