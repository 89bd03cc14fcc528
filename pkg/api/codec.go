package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grexie/secretchat/pkg/api/interop"
	"github.com/grexie/secretchat/pkg/codec"
)

type EncryptRequest struct {
	PlainText string `json:"plainText"`
	Key       string `json:"key,omitempty"`
}

type EncryptResponse struct {
	Ciphertext string `json:"ciphertext"`
	Key        string `json:"key"`
}

type DecryptRequest struct {
	Ciphertext string `json:"ciphertext"`
	Key        string `json:"key"`
}

type DecryptResponse struct {
	PlainText string `json:"plainText"`
}

// Encrypt generates a fresh secret when the request carries none.
func (a *api) Encrypt(c *fiber.Ctx) error {
	var req EncryptRequest

	if err := parseBody(c, &req); err != nil {
		return err
	}

	if req.Key == "" {
		if secret, err := codec.GenerateSecret(); err != nil {
			return err
		} else {
			req.Key = secret
		}
	}

	if ciphertext, err := codec.Encrypt(req.PlainText, req.Key); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(EncryptResponse{Ciphertext: ciphertext, Key: req.Key}))
	}
}

func (a *api) Decrypt(c *fiber.Ctx) error {
	var req DecryptRequest

	if err := parseBody(c, &req); err != nil {
		return err
	} else if req.Key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "key is required")
	} else if plainText, err := codec.Decrypt(req.Ciphertext, req.Key); err != nil {
		return err
	} else {
		return c.JSON(interop.NewResponse(DecryptResponse{PlainText: plainText}))
	}
}
