// Package cli holds the secretchat cobra commands: the HTTP gateway and the
// account, messaging and codec tasks that run against the configured network.
package cli

import (
	"context"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/grexie/secretchat/pkg/simulated"
	"github.com/spf13/cobra"
)

type cli struct {
	environment map[string]string
	network     *simulated.Network
	address     string
}

type Option func(c *cli)

// WithEnvironment reads configuration from environment instead of the
// process environment.
func WithEnvironment(environment map[string]string) Option {
	return func(c *cli) {
		c.environment = environment
	}
}

// WithNetwork shares one simulated network between command invocations.
func WithNetwork(network *simulated.Network) Option {
	return func(c *cli) {
		c.network = network
	}
}

func NewRootCmd(options ...Option) *cobra.Command {
	c := &cli{}
	for _, option := range options {
		option(c)
	}

	cmd := &cobra.Command{
		Use:   "secretchat",
		Short: "SecretChat - encrypted messaging over an FHE-enabled EVM chain",
		Long: `SecretChat encrypts message bodies locally with AES-GCM and stores the
8-digit message key on-chain as an FHE-encrypted value that only the sender
and recipient can decrypt.

Configuration is read from the environment and the .env cascade.`,
		Version:       versioninfo.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&c.address, "address", "", "SecretChat contract address (overrides SECRETCHAT_CONTRACT_ADDRESS)")

	cmd.AddCommand(c.newServeCmd())
	cmd.AddCommand(c.newAddressCmd())
	cmd.AddCommand(c.newRegisterCmd())
	cmd.AddCommand(c.newUsernameCmd())
	cmd.AddCommand(c.newResolveCmd())
	cmd.AddCommand(c.newSendCmd())
	cmd.AddCommand(c.newComposeCmd())
	cmd.AddCommand(c.newDecryptKeyCmd())
	cmd.AddCommand(c.newReadCmd())
	cmd.AddCommand(c.newBoxCmd("inbox"))
	cmd.AddCommand(c.newBoxCmd("outbox"))
	cmd.AddCommand(newEncryptCmd())
	cmd.AddCommand(newDecryptCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command, returning the error for the caller to
// report.
func Execute(ctx context.Context, options ...Option) error {
	return NewRootCmd(options...).ExecuteContext(ctx)
}

// run loads a runtime for the duration of fn.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := c.load(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	return fn(ctx, rt)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the secretchat version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "secretchat %s (built %s)\n", versioninfo.Short(), versioninfo.LastCommit.Format("2006-01-02"))
			return err
		},
	}
}
