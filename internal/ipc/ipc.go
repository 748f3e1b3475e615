// Package ipc is the unix-socket control channel between the daemon and
// empath-ctl.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// SocketPath is a var so tests can point the channel at a scratch socket.
var SocketPath = "/tmp/empath.sock"

type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type Response struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Handler processes one control message and returns the reply.
type Handler func(ControlMessage) Response

// StartServer listens on the control socket and serves each connection on
// its own goroutine. A stale socket file from a previous run is removed.
func StartServer(handler Handler) error {
	os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
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

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}

	resp := handler(msg)
	_ = json.NewEncoder(conn).Encode(resp)
}

// Send delivers one command to a running daemon and returns its reply.
func Send(cmd, arg string) (Response, error) {
	conn, err := net.Dial("unix", SocketPath)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd, Arg: arg}); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
