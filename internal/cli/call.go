package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/bootstrap"
	"github.com/kbukum/apikit/downstream"
)

type callOptions struct {
	method      string
	path        string
	data        string
	contentType string
	query       map[string]string
	scopes      []string
	app         bool
	user        string
	tenant      string
	include     bool
}

func newCallCommand(root *rootOptions) *cobra.Command {
	opts := &callOptions{}
	cmd := &cobra.Command{
		Use:   "call <service> [path]",
		Short: "Call a configured downstream API",
		Long: `Call the downstream API configured under <service> and print the response
body. [path] is appended to the API's relative path.

The application flow is used with --app, the user flow with --user.
Otherwise the API's request_app_token setting decides.`,
		Example: `  apikit call orders items/42
  apikit call orders items -X POST -d '{"sku":"A-1"}'
  apikit call graph me --user alice --tenant contoso -q '$select=displayName'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				opts.path = args[1]
			}
			return runCall(cmd, root, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.method, "method", "X", "", "HTTP method (default: the API's method, POST when --data is set)")
	f.StringVarP(&opts.data, "data", "d", "", "Request body; @file reads a file, @- reads stdin")
	f.StringVar(&opts.contentType, "content-type", "", "Content type of --data (default: JSON when the data is valid JSON)")
	f.StringToStringVarP(&opts.query, "query", "q", nil, "Extra query parameters as key=value")
	f.StringSliceVar(&opts.scopes, "scope", nil, "Override the API's scopes")
	f.BoolVar(&opts.app, "app", false, "Call with an application token")
	f.StringVar(&opts.user, "user", "", "Call on behalf of this subject")
	f.StringVar(&opts.tenant, "tenant", "", "Tenant to acquire the token from")
	f.BoolVarP(&opts.include, "include", "i", false, "Print the status line and content headers")
	cmd.MarkFlagsMutuallyExclusive("app", "user")
	return cmd
}

func runCall(cmd *cobra.Command, root *rootOptions, service string, opts *callOptions) error {
	cfg, _, err := root.loadConfig()
	if err != nil {
		return err
	}
	app, err := startApp(cmd, cfg, bootstrap.WithLogger(root.logger(cmd)))
	if err != nil {
		return err
	}

	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		in, err := opts.input(cmd.InOrStdin())
		if err != nil {
			return err
		}

		callOpts := []downstream.CallOption{downstream.WithOptions(opts.customize(in))}
		switch {
		case opts.app:
			callOpts = append(callOpts, downstream.ForApp())
		case opts.user != "":
			callOpts = append(callOpts, downstream.ForUser(&auth.Principal{Subject: opts.user, TenantID: opts.tenant}))
		}

		resp, err := app.API.CallRaw(ctx, service, in, callOpts...)
		if err != nil {
			return classifyCallError(service, err)
		}
		return writeResponse(cmd.OutOrStdout(), resp, opts.include, service)
	})
}

// input builds the request payload from --data.
func (o *callOptions) input(stdin io.Reader) (downstream.Input, error) {
	if o.data == "" {
		return downstream.None, nil
	}

	data := []byte(o.data)
	if name, ok := strings.CutPrefix(o.data, "@"); ok {
		var err error
		if name == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	if o.contentType == downstream.ContentTypeJSON || (o.contentType == "" && json.Valid(data)) {
		return downstream.Prebuilt{Content: downstream.NewJSONContent(data)}, nil
	}
	return downstream.Text(data), nil
}

func (o *callOptions) customize(in downstream.Input) func(*downstream.Options) {
	return func(opts *downstream.Options) {
		switch {
		case o.method != "":
			opts.HTTPMethod = strings.ToUpper(o.method)
		case in.Kind() != downstream.KindEmpty && opts.HTTPMethod == "":
			opts.HTTPMethod = http.MethodPost
		}
		if o.path != "" {
			opts.RelativePath = strings.TrimSuffix(opts.RelativePath, "/") + "/" + strings.TrimPrefix(o.path, "/")
		}
		if len(o.query) > 0 {
			if opts.Query == nil {
				opts.Query = make(map[string]string, len(o.query))
			}
			maps.Copy(opts.Query, o.query)
		}
		if len(o.scopes) > 0 {
			opts.Scopes = o.scopes
		}
		if o.tenant != "" {
			opts.Token.Tenant = o.tenant
		}
		if o.contentType != "" {
			opts.ContentType = o.contentType
		}
	}
}

// writeResponse streams the body to w. A non-2xx body is still printed
// before the failure is reported.
func writeResponse(w io.Writer, resp *http.Response, include bool, service string) error {
	if include {
		fmt.Fprintf(w, "%s %s\n", resp.Proto, resp.Status)
	}

	content, err := downstream.DeserializeOutput[*downstream.Content](resp, nil, nil)
	if err != nil {
		var dsErr *downstream.Error
		if errors.As(err, &dsErr) && len(dsErr.Body) > 0 {
			if include {
				writeHeaders(w, dsErr.Header)
			}
			_, _ = w.Write(dsErr.Body)
			fmt.Fprintln(w)
		}
		return classifyCallError(service, err)
	}
	defer content.Close()

	if include {
		writeHeaders(w, content.Header())
	}
	if _, err := io.Copy(w, content.Reader()); err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

func writeHeaders(w io.Writer, h http.Header) {
	for _, k := range slices.Sorted(maps.Keys(h)) {
		for _, v := range h[k] {
			fmt.Fprintf(w, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintln(w)
}
