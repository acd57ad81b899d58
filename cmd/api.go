package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAPICmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Send an authenticated request to the platform API",
	}

	cmd.AddCommand(newAPIGetCmd(app), newAPIPostCmd(app))

	return cmd
}

func newAPIGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET a path relative to the authority base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIRequest(cmd, app, http.MethodGet, args[0], nil)
		},
	}
}

func newAPIPostCmd(app *app) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "post <path>",
		Short: "POST a JSON body to a path relative to the authority base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readRequestBody(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			if !json.Valid(body) {
				return fmt.Errorf("request body is not valid JSON")
			}
			return runAPIRequest(cmd, app, http.MethodPost, args[0], body)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, @file to read a file, or - for stdin")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runAPIRequest(cmd *cobra.Command, app *app, method, path string, body []byte) error {
	app.restore(cmd.Context())

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	data, err := app.api.Do(cmd.Context(), method, path, reader)
	if err != nil {
		return withLoginHint(err)
	}

	return writeJSONBody(cmd.OutOrStdout(), data)
}

func readRequestBody(stdin io.Reader, data string) ([]byte, error) {
	switch {
	case data == "-":
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read request body from stdin: %w", err)
		}
		return body, nil
	case strings.HasPrefix(data, "@"):
		body, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		return body, nil
	default:
		return []byte(data), nil
	}
}

func writeJSONBody(w io.Writer, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	pretty.WriteByte('\n')
	_, err := pretty.WriteTo(w)
	return err
}
