package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/codec"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/messenger"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"github.com/spf13/cobra"
)

func parseAccount(account string, fallback common.Address) (common.Address, error) {
	if account == "" {
		return fallback, nil
	} else if !common.IsHexAddress(account) {
		return common.Address{}, fmt.Errorf("invalid account address: %q", account)
	} else {
		return common.HexToAddress(account), nil
	}
}

func printMessage(w io.Writer, m contract.Metadata) {
	from := m.Sender.Hex()
	if m.SenderUsername != "" {
		from = fmt.Sprintf("%s (%s)", m.SenderUsername, from)
	}
	to := m.Recipient.Hex()
	if m.RecipientUsername != "" {
		to = fmt.Sprintf("%s (%s)", m.RecipientUsername, to)
	}

	fmt.Fprintf(w, "Message #%d\n", m.ID)
	fmt.Fprintf(w, "  From: %s\n", from)
	fmt.Fprintf(w, "  To: %s\n", to)
	fmt.Fprintf(w, "  Sent: %s\n", m.Time().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  Ciphertext: %s\n", m.Ciphertext)
}

func printSent(w io.Writer, r messenger.SendResult) {
	fmt.Fprintf(w, "Message sent: #%d\n", r.MessageID)
	fmt.Fprintf(w, "  Key: %s\n", r.Key)
	fmt.Fprintf(w, "  Ciphertext: %s\n", r.Ciphertext)
	fmt.Fprintf(w, "  Tx: %s (block %d)\n", r.TxHash.Hex(), r.BlockNumber)
}

func (c *cli) newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the SecretChat contract address and the signing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				fmt.Fprintf(cmd.OutOrStdout(), "SecretChat address is %s\n", rt.messenger.Contract().Hex())
				fmt.Fprintf(cmd.OutOrStdout(), "Account is %s\n", rt.messenger.Account().Hex())
				return nil
			})
		},
	}
}

func (c *cli) newRegisterCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a username for the signing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if r, err := rt.messenger.RegisterUsername(ctx, username); err != nil {
					return err
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Registered %q for %s (tx %s)\n", username, rt.messenger.Account().Hex(), r.TxHash.Hex())
					return nil
				}
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to register")
	cmd.MarkFlagRequired("username")

	return cmd
}

func (c *cli) newUsernameCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "username",
		Short: "Print the username registered for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if address, err := parseAccount(account, rt.messenger.Account()); err != nil {
					return err
				} else if username, err := rt.messenger.Username(ctx, address); err != nil {
					return err
				} else if username == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s has no username\n", address.Hex())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is %q\n", address.Hex(), username)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account address (defaults to the signing account)")

	return cmd
}

func (c *cli) newResolveCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a username to its account address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if address, err := rt.messenger.ResolveUsername(ctx, username); err != nil {
					return err
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%q is %s\n", username, address.Hex())
					return nil
				}
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to resolve")
	cmd.MarkFlagRequired("username")

	return cmd
}

func (c *cli) newSendCmd() *cobra.Command {
	var ciphertext, key, recipient, username string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a pre-encrypted ciphertext with its numeric key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := codec.ParseSecret(key)
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if r, err := rt.messenger.SendCiphertext(ctx, messenger.SendCiphertextRequest{
					RecipientUsername: username,
					RecipientAddress:  recipient,
					Ciphertext:        ciphertext,
					Key:               k,
				}); err != nil {
					return err
				} else {
					printSent(cmd.OutOrStdout(), r)
					return nil
				}
			})
		},
	}

	cmd.Flags().StringVarP(&ciphertext, "ciphertext", "c", "", "Encrypted message envelope")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Numeric message key")
	cmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Recipient address")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Recipient username")
	cmd.MarkFlagRequired("ciphertext")
	cmd.MarkFlagRequired("key")

	return cmd
}

func (c *cli) newComposeCmd() *cobra.Command {
	var message, recipient, username string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Encrypt a message with a fresh key and send it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if r, err := rt.messenger.Send(ctx, messenger.SendRequest{
					RecipientUsername: username,
					RecipientAddress:  recipient,
					Message:           message,
				}); err != nil {
					return err
				} else {
					printSent(cmd.OutOrStdout(), r)
					return nil
				}
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Message body")
	cmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Recipient address")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Recipient username")
	cmd.MarkFlagRequired("message")

	return cmd
}

func (c *cli) newDecryptKeyCmd() *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "decrypt-key",
		Short: "Decrypt the FHE-encrypted key of a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if key, err := rt.messenger.DecryptKey(ctx, id); err != nil {
					return err
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Message #%d key: %s\n", id, key)
					return nil
				}
			})
		},
	}

	cmd.Flags().Uint64VarP(&id, "message-id", "i", 0, "Message id")
	cmd.MarkFlagRequired("message-id")

	return cmd
}

func (c *cli) newReadCmd() *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Decrypt and print a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				if r, err := rt.messenger.Decrypt(ctx, id); err != nil {
					return err
				} else {
					printMessage(cmd.OutOrStdout(), r.Message)
					fmt.Fprintf(cmd.OutOrStdout(), "  Key: %s\n", r.Key)
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", r.PlainText)
					return nil
				}
			})
		},
	}

	cmd.Flags().Uint64VarP(&id, "message-id", "i", 0, "Message id")
	cmd.MarkFlagRequired("message-id")

	return cmd
}

func (c *cli) newBoxCmd(name string) *cobra.Command {
	var (
		account string
		offset  int64
		count   int64
	)

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("List the %s of an account, newest first", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := interfaces.ParseBox(name)
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				address, err := parseAccount(account, rt.messenger.Account())
				if err != nil {
					return err
				}

				r, err := rt.messenger.List(ctx, box, address, offset, count)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s of %s: %d message(s)\n", name, address.Hex(), r.Count())
				for _, m := range r.Page() {
					printMessage(cmd.OutOrStdout(), m)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account address (defaults to the signing account)")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Number of messages to skip")
	cmd.Flags().Int64Var(&count, "count", 100, "Maximum number of messages to list, 0 for all")

	return cmd
}

func newEncryptCmd() *cobra.Command {
	var message, key string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a message locally, generating a key unless one is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				if secret, err := codec.GenerateSecret(); err != nil {
					return err
				} else {
					key = secret
				}
			} else if _, err := codec.ParseSecret(key); err != nil {
				return err
			}

			if ciphertext, err := codec.Encrypt(message, key); err != nil {
				return err
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Key: %s\n", key)
				fmt.Fprintf(cmd.OutOrStdout(), "Ciphertext: %s\n", ciphertext)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Message body")
	cmd.Flags().StringVarP(&key, "key", "k", "", "8-digit message key")
	cmd.MarkFlagRequired("message")

	return cmd
}

func newDecryptCmd() *cobra.Command {
	var ciphertext, key string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a ciphertext envelope locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if plainText, err := codec.Decrypt(ciphertext, key); err != nil {
				return err
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), plainText)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&ciphertext, "ciphertext", "c", "", "Encrypted message envelope")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Message key")
	cmd.MarkFlagRequired("ciphertext")
	cmd.MarkFlagRequired("key")

	return cmd
}
