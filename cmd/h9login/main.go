// h9login runs the widget's login handshake from a terminal: it restores a
// previous attempt if one is stored, otherwise requests a token, opens the
// login page in the browser, and waits for the identity to resolve.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hal9ai/h9login/loginsession"
	"github.com/rs/zerolog"
)

func main() {
	baseURL := flag.String("base", loginsession.DefaultBaseURL, "login API base URL")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for the persisted login token")
	fresh := flag.Bool("fresh", false, "ignore any stored token and start a new login")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the login to complete")
	flag.Parse()

	if err := run(*baseURL, *stateDir, *fresh, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "h9login: %v\n", err)
		os.Exit(1)
	}
}

func run(baseURL, stateDir string, fresh bool, timeout time.Duration) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	store, err := loginsession.NewFileTokenStore(stateDir)
	if err != nil {
		return err
	}
	if fresh {
		if err := store.Clear(); err != nil {
			return err
		}
	}

	resolved := make(chan string, 1)
	bridge := loginsession.BridgeFuncs{
		SetUserFunc: func(user *string) {
			if user != nil {
				resolved <- *user
			}
		},
	}

	client := loginsession.NewClient(
		loginsession.WithBaseURL(baseURL),
		loginsession.WithClientLogger(logger),
	)
	session, err := loginsession.New(client, store, bridge,
		loginsession.WithLogger(logger),
		loginsession.WithPageOpener(openBrowser),
	)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	session.Restore(ctx)
	if session.State() != loginsession.Pending {
		fmt.Println("Opening the login page in your browser...")
		session.RequestLogin(ctx)
	} else {
		fmt.Println("Resuming a previous login attempt...")
	}
	if session.State() != loginsession.Pending {
		return fmt.Errorf("could not start a login attempt")
	}

	select {
	case user := <-resolved:
		identity, _ := session.Identity()
		fmt.Printf("Signed in as %s (%s)\n", user, identity.Photo)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for login")
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".hal9")
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
