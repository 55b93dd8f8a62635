package throttle_test

import (
	"fmt"
	"net/http"

	"github.com/adamwoolhether/apibuilder/client/throttle"
)

func ExampleNewRoundTripper() {
	rt, err := throttle.NewRoundTripper(throttle.Config{RPS: 10, Burst: 5}, http.DefaultTransport, throttle.WithPerHost())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = &http.Client{Transport: rt}

	fmt.Println("throttled transport created")
	// Output: throttled transport created
}
