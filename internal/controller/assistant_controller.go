package controller

import (
	"ai-assistant-be/internal/dto"
	"ai-assistant-be/internal/pkg/serverutils"
	"ai-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAssistantController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	ServiceStatus(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type assistantController struct {
	assistantService service.IAssistantService
}

func NewAssistantController(assistantService service.IAssistantService) IAssistantController {
	return &assistantController{
		assistantService: assistantService,
	}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Post("chat", c.Chat)
	h.Get("status", c.ServiceStatus)
	h.Get("session/:id/status", c.Status)
	h.Get("session/:id/history", c.History)
}

func (c *assistantController) ServiceStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(c.assistantService.ServiceStatus(ctx.Context()))
}

func (c *assistantController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Chat(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *assistantController) Status(ctx *fiber.Ctx) error {
	res, err := c.assistantService.Status(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session status", res))
}

func (c *assistantController) History(ctx *fiber.Ctx) error {
	res, err := c.assistantService.History(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session history", res))
}
