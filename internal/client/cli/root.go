package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/akarpenko/notesync/internal/client/bridge"
	"github.com/akarpenko/notesync/internal/common"
)

func (a *App) getStatus() string {
	status, ok := a.bridge.Status().Data.(bridge.StatusData)
	if !ok {
		return ""
	}

	s := status.State
	if status.Email != "" {
		s = status.Email + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	fmt.Fprintln(a.out, "Welcome to NoteSync CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprintf(a.out, "ns %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(a.out, "Available commands: sync, status, config, autosync on|off, logout, exit")
			} else {
				fmt.Fprintln(a.out, "Available commands: register, login, status, config, exit")
			}

		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.print(a.bridge.Logout(ctx))
		case "sync":
			a.print(a.bridge.Sync(ctx))
		case "status":
			a.print(a.bridge.Status())
		case "config":
			a.print(a.bridge.Config())
		case "autosync":
			a.autosync(args)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}

func (a *App) register(ctx context.Context) {
	email, password, err := a.readCredentials()
	if err != nil {
		fmt.Fprintln(a.out, "input error:", err)
		return
	}
	defer common.WipeByteArray(password)
	a.print(a.bridge.Register(ctx, email, string(password)))
}

func (a *App) login(ctx context.Context) {
	email, password, err := a.readCredentials()
	if err != nil {
		fmt.Fprintln(a.out, "input error:", err)
		return
	}
	defer common.WipeByteArray(password)
	a.print(a.bridge.Login(ctx, email, string(password)))
}

func (a *App) readCredentials() (string, []byte, error) {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) autosync(args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(a.out, "Usage: autosync on|off")
		return
	}
	if args[0] == "on" {
		a.print(a.bridge.StartAutoSync())
	} else {
		a.print(a.bridge.StopAutoSync())
	}
}

func (a *App) print(env bridge.Envelope) {
	if !env.Success {
		fmt.Fprintln(a.out, "error:", env.Error)
		return
	}

	switch data := env.Data.(type) {
	case bridge.StatusData:
		fmt.Fprintf(a.out, "state: %s\n", data.State)
		if data.Email != "" {
			fmt.Fprintf(a.out, "account: %s\n", data.Email)
		}
		fmt.Fprintf(a.out, "autosync: %v\n", data.AutoSyncOn)
		if data.LastSyncAt != "" {
			fmt.Fprintf(a.out, "last sync: %s\n", data.LastSyncAt)
		}
		if data.LastError != "" {
			fmt.Fprintf(a.out, "last error: %s\n", data.LastError)
		}
	case bridge.ConfigData:
		fmt.Fprintf(a.out, "server: %s\n", data.ServerURL)
		fmt.Fprintf(a.out, "sync interval: %s\n", data.SyncInterval)
	case nil:
		fmt.Fprintln(a.out, "OK")
	default:
		fmt.Fprintf(a.out, "%v\n", data)
	}
}
