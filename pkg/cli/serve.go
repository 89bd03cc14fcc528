package cli

import (
	"context"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/grexie/secretchat/pkg/api"
	"github.com/grexie/secretchat/pkg/auth"
	"github.com/grexie/secretchat/pkg/tls"
	"github.com/spf13/cobra"
)

func newApp(rt *runtime) (*fiber.App, error) {
	keys := auth.NewAuth(rt.config.APIKeys)
	if len(keys.Keys()) == 0 {
		log.Warnf("SECRETCHAT_API_KEYS not set, the API is open and sends and decrypts as %s", rt.messenger.Account().Hex())
	}

	a, err := api.NewAPI(keys, rt.messenger)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(logger.New())

	app.Mount("/api/v1", a.App())

	return app, nil
}

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the SecretChat HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, rt *runtime) error {
				app, err := newApp(rt)
				if err != nil {
					return err
				}

				go func() {
					<-ctx.Done()
					if err := app.Shutdown(); err != nil {
						log.Warnf("error shutting down: %v", err)
					}
				}()

				addr := fmt.Sprintf(":%s", rt.config.Port)

				if rt.config.InsecureHTTP {
					log.Infof("🚀 started secretchat %s on port %s", versioninfo.Short(), rt.config.Port)
					return app.Listen(addr)
				} else if cert, err := tls.CreateServerCert(tls.CertOptions{}); err != nil {
					return fmt.Errorf("error creating tls certificate: %w", err)
				} else {
					log.Infof("🚀 started secretchat %s on port %s", versioninfo.Short(), rt.config.Port)
					return app.ListenTLSWithCertificate(addr, cert)
				}
			})
		},
	}
}
