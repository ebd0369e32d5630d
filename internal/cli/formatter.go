package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Response is what the one-shot commands print in json format
type Response struct {
	Success  bool        `json:"success"`
	Command  string      `json:"command"`
	Version  string      `json:"version,omitempty"`
	Duration string      `json:"duration"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// render writes resp to w. The text format prints only the payload, one
// destination per line for route listings.
func render(w io.Writer, format string, resp *Response) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "text":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if !resp.Success {
		_, err := fmt.Fprintf(w, "%s: %s\n", resp.Command, resp.Error)
		return err
	}

	var text string
	switch data := resp.Data.(type) {
	case []string:
		text = strings.Join(data, "\n")
	case fmt.Stringer:
		text = data.String()
	default:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		text = string(b)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// runCommand runs fn and prints its result or error in the requested format
func runCommand(w io.Writer, format, command string, fn func() (interface{}, error)) error {
	start := time.Now()
	data, err := fn()

	resp := &Response{
		Success:  err == nil,
		Command:  command,
		Version:  version,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Data = data
	}

	if rerr := render(w, format, resp); rerr != nil {
		return fmt.Errorf("failed to write output: %w", rerr)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}
	return nil
}
