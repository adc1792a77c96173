package controller

import (
	"realtime-chat-be/internal/pkg/serverutils"
	"realtime-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	ListMyChats(ctx *fiber.Ctx) error
	ListMessages(ctx *fiber.Ctx) error
}

// chatController is the REST read surface over the same services the
// gateway uses; writes go through the websocket.
type chatController struct {
	chatService    service.IChatService
	messageService service.IMessageService
}

func NewChatController(chatService service.IChatService, messageService service.IMessageService) IChatController {
	return &chatController{
		chatService:    chatService,
		messageService: messageService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.ListMyChats)
	h.Get(":id/messages", c.ListMessages)
}

func (c *chatController) ListMyChats(ctx *fiber.Ctx) error {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return serverutils.NewHTTPError(fiber.StatusUnauthorized, "Unauthorized")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusUnauthorized, "Invalid user id")
	}

	res, err := c.chatService.GetUserChats(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list chats", res))
}

func (c *chatController) ListMessages(ctx *fiber.Ctx) error {
	roomID := ctx.Params("id")

	res, err := c.messageService.GetChatMessages(ctx.Context(), roomID)
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list messages", res))
}
