package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grexie/secretchat/pkg/api/interop"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/messenger"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
)

type ListMessagesResponse struct {
	Count int64               `json:"count"`
	Page  []contract.Metadata `json:"page"`
}

type DecryptKeyResponse struct {
	ID  uint64 `json:"id"`
	Key string `json:"key"`
}

func (a *api) ListMessages(c *fiber.Ctx) error {
	offset := int64(c.QueryInt("offset", 0))
	count := int64(c.QueryInt("count", 100))

	if address, err := parseAddress(c); err != nil {
		return err
	} else if box, err := interfaces.ParseBox(c.Params("box")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	} else if r, err := a.messenger.List(c.UserContext(), box, address, offset, count); err != nil {
		return err
	} else {
		page := r.Page()
		if page == nil {
			page = []contract.Metadata{}
		}
		return c.JSON(interop.NewResponse(ListMessagesResponse{Count: r.Count(), Page: page}))
	}
}

func (a *api) SendMessage(c *fiber.Ctx) error {
	var req messenger.SendRequest

	if err := parseBody(c, &req); err != nil {
		return err
	} else if r, err := a.messenger.Send(c.UserContext(), req); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(r))
	}
}

func (a *api) GetMessage(c *fiber.Ctx) error {
	if id, err := parseID(c); err != nil {
		return err
	} else if m, err := a.messenger.Message(c.UserContext(), id); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(m))
	}
}

func (a *api) DecryptKey(c *fiber.Ctx) error {
	if id, err := parseID(c); err != nil {
		return err
	} else if key, err := a.messenger.DecryptKey(c.UserContext(), id); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(DecryptKeyResponse{ID: id, Key: key}))
	}
}

func (a *api) DecryptMessage(c *fiber.Ctx) error {
	if id, err := parseID(c); err != nil {
		return err
	} else if r, err := a.messenger.Decrypt(c.UserContext(), id); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(r))
	}
}
