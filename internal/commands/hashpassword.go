package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

func newHashPasswordCmd(g *globals) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Create the auth.secret file protecting the calendar feed",
		Long: `Prompts for a username and password and writes "username:argon2id-hash"
to the auth file (feed.auth_file, or AUTH_FILE) with mode 0400.`,
		Args: cobra.NoArgs,
		RunE: g.run(func(cmd *cobra.Command, args []string) error {
			path := g.cfg.Feed.AuthFile
			src := cmd.InOrStdin()
			in := bufio.NewReader(src)
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Enter username: ")
			username, err := readLine(in)
			if err != nil {
				return fmt.Errorf("error reading username: %w", err)
			}
			if username == "" {
				return errors.New("username cannot be empty")
			}

			password, err := readSecret(src, in, out, "Enter password:   ")
			if err != nil {
				return err
			}
			confirmation, err := readSecret(src, in, out, "Confirm password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}
			if password != confirmation {
				return errors.New("passwords do not match")
			}

			confirm := func() bool {
				fmt.Fprintf(out, "Auth file already exists: %s\nOverwrite? (y/N): ", path)
				answer, _ := readLine(in)
				answer = strings.ToLower(answer)
				return answer == "y" || answer == "yes"
			}
			if err := app.CreateAuthFile(path, username, password, overwrite, confirm); err != nil {
				return err
			}

			fmt.Fprintf(out, "✅ Auth file created: %s (mode: 0400 read-only)\n", path)
			fmt.Fprintf(out, "   Username: %s\n", username)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing auth file without asking")
	return cmd
}

// readSecret reads a password without echo when src is a terminal
func readSecret(src io.Reader, in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}
		return string(secret), nil
	}

	secret, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return secret, nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
