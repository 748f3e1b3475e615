package main

import (
	"fmt"
	"os"
	"strings"

	"empath/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: empath-ctl <toggle-speech|say <text>|status|stop>")
		os.Exit(2)
	}

	cmd := os.Args[1]
	arg := strings.Join(os.Args[2:], " ")

	resp, err := ipc.Send(cmd, arg)
	if err != nil {
		fmt.Println("empath-daemon not running:", err)
		os.Exit(1)
	}

	if !resp.OK {
		fmt.Println("error:", resp.Detail)
		os.Exit(1)
	}
	if resp.Detail != "" {
		fmt.Println(resp.Detail)
	}
}
