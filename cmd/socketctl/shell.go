package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

func (c *controller) shell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "socket> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("on"),
			readline.PcItem("off"),
			readline.PcItem("status"),
			readline.PcItem("info"),
			readline.PcItem("auth"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	c.printer.w = out
	printShellHelp(out)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "help", "?":
			printShellHelp(out)
		case "exit", "quit", "q":
			return nil
		case "watch":
			fmt.Fprintln(out, "watch is only available as a top-level command")
		default:
			if err := c.run(ctx, cmd, parts[1:]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, "commands: on, off, status, info, auth <pin>, help, exit")
}
