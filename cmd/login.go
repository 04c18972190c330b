package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kmkrofficial/signature/internal/cliconfig"
	"github.com/kmkrofficial/signature/pkg/client"
)

var (
	loginIssuer        string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Authenticate with a signature server",
	Long: `Signs in with email and password and saves the session token locally,
so that later commands (audit log, tasks) are authenticated.

The password is read from the terminal, from stdin with --password-stdin,
or from SIGNATURE_PASSWORD.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(args[0])
		if email == "" {
			return fmt.Errorf("email cannot be empty")
		}

		server, err := f.ServerAddr()
		if err != nil {
			return err
		}

		password, err := readPassword(cmd.InOrStdin(), loginPasswordStdin)
		if err != nil {
			return err
		}

		cli := client.New(server)
		log.Info().Msgf("Signing in to %s as %s...", bold(server), email)

		resp, correlation, err := cli.Login(cmd.Context(), loginIssuer, email, password)
		if err != nil {
			return logError(err, correlation, "failed to sign in")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		err = cfg.SetCredential(server, &cliconfig.Credential{
			Token:     resp.Token,
			Email:     resp.Principal.Email,
			ExpiresAt: resp.ExpiresAt,
		})
		if err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, correlation, "login succeeded but could not save credentials")
		}

		logSuccess("signed in as %s", bold(resp.Principal.Email))
		return nil
	},
}

func readPassword(in io.Reader, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if pw := os.Getenv("SIGNATURE_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to read the password from, use --password-stdin")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginIssuer, "issuer", "", "Password issuer name (optional)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
}
