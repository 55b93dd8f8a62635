// Package app implements the apicall command line.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/apibuilder/client"
	"github.com/adamwoolhether/apibuilder/content"
	"github.com/adamwoolhether/apibuilder/request"
	"github.com/adamwoolhether/apibuilder/response"
	"github.com/adamwoolhether/apibuilder/result"
	"github.com/adamwoolhether/apibuilder/uri"
)

const cliName = "apicall"

// Options holds the flags of the apicall command.
type Options struct {
	Paths     []string
	Queries   []string
	Headers   []string
	Bearer    string
	JSON      string
	File      string
	Timeout   time.Duration
	RPS       int
	Burst     int
	UserAgent string
	Verbose   bool
}

// ErrRequestFailed is returned when the call did not succeed. The result
// has already been printed.
var ErrRequestFailed = errors.New("request failed")

// NewCommand creates the apicall command writing results to out and logs
// to errOut.
func NewCommand(out, errOut io.Writer) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   cliName + " <method> <url>",
		Short: "Send an HTTP request and print the classified result",
		Long: `apicall sends one request and prints the result envelope as JSON.

Successful JSON bodies are embedded in the Model field. Error payloads
returned by the server are parsed into ErrorMessage or StateModel.`,
		Example: `  # Query parameters are escaped and appended in order
  apicall get https://api.example.com --path users --query name=Ana

  # Post a JSON body with a bearer token, at most 5 requests per second
  apicall post https://api.example.com/users --json '{"name":"Ana"}' --bearer abc --rps 5 --burst 1`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, strings.ToUpper(args[0]), args[1], out, errOut)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.Paths, "path", nil, "path segment appended to the url, repeatable")
	f.StringArrayVar(&opts.Queries, "query", nil, "query parameter as key=value, repeatable")
	f.StringArrayVar(&opts.Headers, "header", nil, "request header as key=value, repeatable")
	f.StringVar(&opts.Bearer, "bearer", "", "bearer token for the Authorization header")
	f.StringVar(&opts.JSON, "json", "", "raw JSON request body")
	f.StringVar(&opts.File, "file", "", "file sent as the request body")
	f.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall request timeout")
	f.IntVar(&opts.RPS, "rps", 0, "requests per second limit, 0 disables throttling")
	f.IntVar(&opts.Burst, "burst", 1, "throttle burst size")
	f.StringVar(&opts.UserAgent, "user-agent", cliName+"/1.0", "User-Agent header")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "log request details to stderr")
	cmd.MarkFlagsMutuallyExclusive("json", "file")

	return cmd
}

func run(cmd *cobra.Command, opts *Options, method, baseURL string, out, errOut io.Writer) error {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	clientOpts := []client.Option{
		client.WithLogger(logger),
		client.WithTimeout(opts.Timeout),
		client.WithUserAgent(opts.UserAgent),
		client.WithRequestID(),
	}
	if opts.RPS > 0 {
		clientOpts = append(clientOpts, client.WithThrottle(opts.RPS, opts.Burst))
	}

	c, err := client.Build(clientOpts...)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	factory, err := request.NewFactory(c, request.WithBaseURL(baseURL), request.WithLogger(logger))
	if err != nil {
		return err
	}

	b := factory.New(method)

	queries, err := pairs(opts.Queries)
	if err != nil {
		return fmt.Errorf("--query: %w", err)
	}
	b.SetURI(func(u *uri.Builder) {
		u.SetPath(opts.Paths...)
		for _, q := range queries {
			u.Add(q.Key, q.Value)
		}
	})

	headers, err := pairs(opts.Headers)
	if err != nil {
		return fmt.Errorf("--header: %w", err)
	}
	b.AddHeader(func(h *request.Headers) {
		h.AcceptJSON()
		for _, kv := range headers {
			h.Set(kv.Key, kv.Value)
		}
	})

	if opts.Bearer != "" {
		b.AddAuthorizationBearerToken(opts.Bearer)
	}

	switch {
	case opts.JSON != "":
		b.SetContent(func(cb *content.Builder) (*content.Content, error) { return cb.JSONString(opts.JSON) })
	case opts.File != "":
		b.SetContent(func(cb *content.Builder) (*content.Content, error) { return cb.File(opts.File, "", "") })
	}

	msg, err := b.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp := msg.Send()

	var envelope any
	var ok bool
	switch {
	case resp.IsSuccess() && isJSONResponse(resp):
		typed := response.AsTypedResult[json.RawMessage](resp)
		envelope, ok = typed, typed.IsSuccess()
	case resp.IsSuccess():
		envelope, ok = textResult(resp)
	default:
		res := resp.AsResult()
		envelope, ok = res, res.IsSuccess()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	if !ok {
		return ErrRequestFailed
	}

	return nil
}

func isJSONResponse(resp *response.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err != nil {
		return false
	}

	return mediaType == response.MediaJSON || strings.HasSuffix(mediaType, "+json")
}

func textResult(resp *response.Response) (any, bool) {
	status := resp.StatusCode()

	text, err := resp.AsString()
	if err != nil && !errors.Is(err, response.ErrNoContent) {
		return result.FaultFromError(err), false
	}

	if text == "" {
		res, err := result.Success(status)
		if err != nil {
			return result.FaultFromError(err), false
		}
		return res, true
	}

	typed, err := result.SuccessWith(text, status)
	if err != nil {
		return result.FaultFromError(err), false
	}

	return typed, true
}

func pairs(raw []string) ([]content.Pair, error) {
	out := make([]content.Pair, 0, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not key=value", kv)
		}
		out = append(out, content.Pair{Key: k, Value: v})
	}

	return out, nil
}
