package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultHost = "http://localhost:8080"

func newSignCmd() *cobra.Command {
	var host, backendKey string
	cmd := &cobra.Command{
		Use:   "sign <identity>",
		Short: "Fetch the X-User-Signature for an identity from a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profileFrom(cmd)
			if err != nil {
				return err
			}
			host = pick(cmd.Flags().Changed("host"), host, p.Host, defaultHost)
			backendKey = pick(cmd.Flags().Changed("backend-key"), backendKey, p.BackendKey, "")
			if backendKey == "" {
				if backendKey, err = readSecret(cmd, "Backend API key: "); err != nil {
					return err
				}
			}
			sig, err := fetchSignature(cmd.Context(), host, backendKey, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", defaultHost, "uke server base URL")
	cmd.Flags().StringVar(&backendKey, "backend-key", "", "backend API key (prompted when empty)")
	return cmd
}

// readSecret reads a masked value from the terminal, falling back to a
// plain line when stdin is not a terminal.
func readSecret(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	v := strings.TrimSpace(line)
	if v == "" {
		return "", fmt.Errorf("no value given")
	}
	return v, nil
}

func fetchSignature(ctx context.Context, host, backendKey, identity string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(map[string]string{"userId": identity})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(host, "/")+"/v1/_sign", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create signature request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+backendKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch signature: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("signature request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var result struct {
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode signature response: %w", err)
	}
	return result.Signature, nil
}
