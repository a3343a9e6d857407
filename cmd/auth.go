package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/adapters/oauth"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage mailbox authorization and stored secrets",
	}

	cmd.AddCommand(
		newAuthSetAppCredentialsCmd(app),
		newAuthLoginCmd(app),
		newAuthRefreshCmd(app),
		newAuthSetSecretCmd(app),
	)

	return cmd
}

func newAuthSetAppCredentialsCmd(app *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set-app-credentials",
		Short: "Store the OAuth client id and secret",
		Long:  "Store the OAuth client id and secret for the configured account. Reads the client JSON downloaded from the provider console from --file, or from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readCredentialsInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			creds, err := app.tokens.SetAppCredentials(cmd.Context(), app.cfg.Account, raw)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored app credentials for account %s (client %s)\n", app.cfg.Account, creds.ClientID)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the client credentials JSON (default: stdin)")
	return cmd
}

func readCredentialsInput(stdin io.Reader, file string) (string, error) {
	var (
		raw []byte
		err error
	)
	if file != "" {
		raw, err = os.ReadFile(file)
	} else {
		raw, err = io.ReadAll(io.LimitReader(stdin, 1<<20))
	}
	if err != nil {
		return "", fmt.Errorf("read app credentials: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", errors.New("app credentials input is empty")
	}
	return string(raw), nil
}

func newAuthLoginCmd(app *app) *cobra.Command {
	var timeout time.Duration
	var device bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize mailbox access",
		Long:  "Authorize mailbox access in a browser through a loopback redirect, or with --device by typing a short code on another device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account := app.cfg.Account
			creds, err := app.tokens.AppCredentials(cmd.Context(), account)
			if err != nil {
				return fmt.Errorf("%w; run `mailbot auth set-app-credentials` first", err)
			}

			var tokens domain.TokenRecord
			if device {
				tokens, err = oauth.DeviceFlow{
					Endpoint:   app.oauthEndpoint,
					HTTPClient: app.httpClient,
					Timeout:    timeout,
					Show: func(verificationURL, userCode string) error {
						_, err := fmt.Fprintf(cmd.OutOrStdout(), "Visit %s and enter code %s to authorize account %s\n", verificationURL, userCode, account)
						return err
					},
				}.Run(cmd.Context(), creds)
			} else {
				tokens, err = oauth.LoginFlow{
					Endpoint:   app.oauthEndpoint,
					ListenAddr: app.cfg.OAuth.Listen,
					Timeout:    timeout,
					HTTPClient: app.httpClient,
					OpenURL: func(authURL string) error {
						_, err := fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize account %s:\n%s\n", account, authURL)
						return err
					},
				}.Run(cmd.Context(), creds)
			}
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := app.tokens.SaveTokens(cmd.Context(), account, tokens); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Authorized account %s\n", account)
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for authorization")
	cmd.Flags().BoolVar(&device, "device", false, "Use the device code flow instead of a browser redirect")
	return cmd
}

func newAuthRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tokens domain.TokenRecord
			refresh := func(ctx context.Context) error {
				var err error
				tokens, err = app.tokens.ForceRefresh(ctx, app.cfg.Account)
				return err
			}

			if err := runSpinner(cmd.Context(), cmd.ErrOrStderr(), "Refreshing access token...", refresh); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Access token for account %s valid until %s\n",
				app.cfg.Account, tokens.ExpiryDate.Local().Format(time.DateTime))
			return err
		},
	}
}

func newAuthSetSecretCmd(app *app) *cobra.Command {
	var key string
	var value string

	cmd := &cobra.Command{
		Use:   "set-secret",
		Short: "Store a secret such as the chat bot token or the model API key",
		Example: "  mailbot auth set-secret --key mailbot/telegram/bot-token --value 123:abc\n" +
			"  mailbot auth set-secret --key mailbot/llm/api-key --value sk-...",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := app.secrets.Save(cmd.Context(), key, value)
			if err != nil {
				return fmt.Errorf("store secret %q: %w", key, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s in %s\n", key, backend)
			return err
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Secret-store key")
	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
