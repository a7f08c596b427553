package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"alive/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Println("usage: alive-ctl [--socket PATH] <intake|cancel|ask|simulate|history|transcribe> [args...]")
		os.Exit(2)
	}

	resp, err := ipc.Send(*socket, ipc.Request{Cmd: args[0], Args: args[1:]})
	if err != nil {
		fmt.Println("alive-daemon not running:", err)
		os.Exit(1)
	}

	if !resp.OK {
		fmt.Println("error:", resp.Err)
		os.Exit(1)
	}
	fmt.Println(resp.Reply)
}
