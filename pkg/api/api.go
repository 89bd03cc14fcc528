package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/grexie/secretchat/pkg/api/interop"
	"github.com/grexie/secretchat/pkg/auth"
	"github.com/grexie/secretchat/pkg/codec"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/messenger"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
)

type API interface {
	App() *fiber.App
}

type api struct {
	app       *fiber.App
	auth      auth.Auth
	messenger messenger.Messenger
}

var _ API = &api{}

func errorStatus(err error) (int, string) {
	var e *fiber.Error

	switch {
	case errors.As(err, &e):
		return e.Code, ""
	case messenger.IsValidationError(err):
		return fiber.StatusBadRequest, interop.KindValidation
	case codec.IsFormatError(err):
		return fiber.StatusBadRequest, interop.KindFormat
	case codec.IsAuthenticationError(err):
		return fiber.StatusUnprocessableEntity, interop.KindAuthentication
	case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, fhe.ErrUnknownHandle):
		return fiber.StatusNotFound, interop.KindNotFound
	case errors.Is(err, fhe.ErrNotAuthorized):
		return fiber.StatusForbidden, ""
	case errors.Is(err, contract.ErrTransactionReverted):
		return fiber.StatusConflict, ""
	default:
		return fiber.StatusInternalServerError, ""
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code, kind := errorStatus(err)

	if code >= fiber.StatusInternalServerError {
		log.Warnf("%s %s failed: %v", c.Method(), c.Path(), err)
	}

	if err := c.Status(code).JSON(interop.NewKindedErrorResponse(kind, err)); err != nil {
		return c.Status(code).JSON(interop.NewErrorResponse(fmt.Errorf("internal server error")))
	}

	return nil
}

func NewAPI(auth auth.Auth, messenger messenger.Messenger) (API, error) {
	a := api{auth: auth, messenger: messenger}

	a.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	a.app.Use(a.auth.RequireAPIKey)

	a.app.Get("/status", a.Status)

	a.app.Post("/usernames", a.RegisterUsername)
	a.app.Get("/usernames/:username", a.ResolveUsername)
	a.app.Get("/accounts/:address/username", a.GetUsername)
	a.app.Get("/accounts/:address/:box", a.ListMessages)

	a.app.Post("/messages", a.SendMessage)
	a.app.Get("/messages/:id", a.GetMessage)
	a.app.Post("/messages/:id/key", a.DecryptKey)
	a.app.Post("/messages/:id/decrypt", a.DecryptMessage)

	a.app.Post("/codec/encrypt", a.Encrypt)
	a.app.Post("/codec/decrypt", a.Decrypt)

	return &a, nil
}

func (a *api) App() *fiber.App {
	return a.app
}

func parseAddress(c *fiber.Ctx) (common.Address, error) {
	address := c.Params("address")
	if !common.IsHexAddress(address) {
		return common.Address{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid address: %s", address))
	}
	return common.HexToAddress(address), nil
}

func parseID(c *fiber.Ctx) (uint64, error) {
	if id, err := strconv.ParseUint(c.Params("id"), 10, 64); err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid message id: %s", c.Params("id")))
	} else {
		return id, nil
	}
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(strings.TrimSpace(string(c.Body()))) == 0 {
		return nil
	} else if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
