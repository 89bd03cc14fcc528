package api

import (
	"github.com/carlmjohnson/versioninfo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/grexie/secretchat/pkg/api/interop"
)

type StatusResponse struct {
	Contract      common.Address `json:"contract"`
	Account       common.Address `json:"account"`
	ChainID       string         `json:"chainId"`
	ProtocolID    uint64         `json:"protocolId"`
	TotalMessages uint64         `json:"totalMessages"`
	APIKeys       int            `json:"apiKeys"`
	Version       string         `json:"version"`
}

func (a *api) Status(c *fiber.Ctx) error {
	if total, err := a.messenger.TotalMessages(c.UserContext()); err != nil {
		return err
	} else if protocolID, err := a.messenger.ProtocolID(c.UserContext()); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(StatusResponse{
			Contract:      a.messenger.Contract(),
			Account:       a.messenger.Account(),
			ChainID:       a.messenger.ChainID().String(),
			ProtocolID:    protocolID,
			TotalMessages: total,
			APIKeys:       len(a.auth.Keys()),
			Version:       versioninfo.Short(),
		}))
	}
}
