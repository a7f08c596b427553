// Package ipc is the unix-socket control channel between the daemon and
// the ctl binary: one JSON request in, one JSON response out per
// connection.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const DefaultSocketPath = "/tmp/alive.sock"

// Request is one control command with optional arguments.
type Request struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

// Response carries the command outcome back to the caller.
type Response struct {
	OK    bool   `json:"ok"`
	Reply string `json:"reply,omitempty"`
	Err   string `json:"err,omitempty"`
}

// Handler processes one request. It runs on the connection's goroutine, so
// long-running work should be spawned off and acknowledged immediately.
type Handler func(Request) Response

// Serve listens on the socket and dispatches requests to the handler. The
// accept loop runs in the background; Serve returns once listening.
func Serve(path string, handler Handler) error {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}

	resp := handler(req)
	_ = json.NewEncoder(conn).Encode(resp)
}

// Send delivers one request to a running daemon and waits for its response.
func Send(path string, req Request) (Response, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
