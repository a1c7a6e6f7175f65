package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/pkg/serverutils"
	"docuchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
}

type conversationController struct {
	conversationService service.IConversationService
	uploadDir           string
	maxUploadBytes      int64
}

func NewConversationController(conversationService service.IConversationService, uploadDir string, maxUploadBytes int64) IConversationController {
	return &conversationController{
		conversationService: conversationService,
		uploadDir:           uploadDir,
		maxUploadBytes:      maxUploadBytes,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get(":id", c.Show)
	h.Post(":id/message", c.SendMessage)
}

// Create receives the uploaded document, stores it under the user's upload
// directory, and hands it to the orchestrator for indexing.
func (c *conversationController) Create(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	file, err := ctx.FormFile("document")
	if err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "A document file is required", err)
	}

	if c.maxUploadBytes > 0 && file.Size > c.maxUploadBytes {
		return serverutils.NewAppError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("Document exceeds the %d MB upload limit", c.maxUploadBytes/(1024*1024)), nil)
	}

	userDir := filepath.Join(c.uploadDir, userId.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return err
	}

	filename := filepath.Base(file.Filename)
	dest := filepath.Join(userDir, fmt.Sprintf("%s_%s", uuid.New().String()[:8], filename))
	if err := ctx.SaveFile(file, dest); err != nil {
		return err
	}

	title := ctx.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	res, err := c.conversationService.CreateConversation(ctx.Context(), userId, title, filename, dest)
	if err != nil {
		// The document never made it into an index; don't keep it on disk.
		_ = os.Remove(dest)
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create conversation", res))
}

func (c *conversationController) GetAll(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.conversationService.GetAllConversations(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list conversations", res))
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid conversation id", err)
	}

	res, err := c.conversationService.GetConversationByID(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show conversation", res))
}

func (c *conversationController) SendMessage(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid conversation id", err)
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.conversationService.SendMessage(ctx.Context(), userId, id, req.Message)
	if err != nil {
		if err == service.ErrNoActiveIndex {
			return serverutils.NewAppError(fiber.StatusConflict, err.Error(), nil)
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}
