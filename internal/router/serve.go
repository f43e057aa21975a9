package router

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds one request line; diagrams are small, so 4 MiB is
// generous.
const maxLineBytes = 4 << 20

// Serve runs the line-delimited JSON session loop: one request per
// line in, one response per line out. It returns when the input is
// exhausted, the context is cancelled, or the output fails.
//
// A line that does not decode as a request still produces an error
// response; the loop only stops on transport-level failures.
func (rt *Router) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var resp Response
		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp = Response{
				Status:    "error",
				Error:     fmt.Sprintf("decode request: %v", err),
				ErrorCode: CodeBadRequest,
			}
		} else {
			resp = rt.Handle(req)
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if _, err := out.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}
