package api

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/grexie/secretchat/pkg/api/interop"
)

type RegisterUsernameRequest struct {
	Username string `json:"username"`
}

type UsernameResponse struct {
	Username string         `json:"username"`
	Address  common.Address `json:"address"`
}

func (a *api) RegisterUsername(c *fiber.Ctx) error {
	var req RegisterUsernameRequest

	if err := parseBody(c, &req); err != nil {
		return err
	} else if receipt, err := a.messenger.RegisterUsername(c.UserContext(), req.Username); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(receipt))
	}
}

func (a *api) ResolveUsername(c *fiber.Ctx) error {
	username := c.Params("username")

	if address, err := a.messenger.ResolveUsername(c.UserContext(), username); err != nil {
		return err
	} else if address == (common.Address{}) {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("username %s not registered", username))
	} else {
		return c.JSON(interop.NewResponse(UsernameResponse{Username: username, Address: address}))
	}
}

func (a *api) GetUsername(c *fiber.Ctx) error {
	if address, err := parseAddress(c); err != nil {
		return err
	} else if username, err := a.messenger.Username(c.UserContext(), address); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(UsernameResponse{Username: username, Address: address}))
	}
}
