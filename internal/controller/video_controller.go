package controller

import (
	"errors"

	"ai-video-companion/internal/dto"
	"ai-video-companion/internal/mapper"
	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/pkg/serverutils"
	"ai-video-companion/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LogReader exposes the persisted application log.
type LogReader interface {
	GetLogs(level string, limit, offset int) ([]logger.LogEntry, error)
}

type IVideoController interface {
	RegisterRoutes(r fiber.Router)
	GetState(ctx *fiber.Ctx) error
	ListVideos(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	RemoveVideo(ctx *fiber.Ctx) error
	ClearCache(ctx *fiber.Ctx) error
	RestoreAnalysis(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
	GenerateHighlights(ctx *fiber.Ctx) error
	GetHighlights(ctx *fiber.Ctx) error
	GetAnalysis(ctx *fiber.Ctx) error
	SetupConversation(ctx *fiber.Ctx) error
	RestoreConversation(ctx *fiber.Ctx) error
	AskQuestion(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
}

type videoController struct {
	videos service.IVideoService
	tasks  service.ITaskService
	logs   LogReader
	mapper *mapper.VideoMapper
}

func NewVideoController(videos service.IVideoService, tasks service.ITaskService, logs LogReader) IVideoController {
	return &videoController{
		videos: videos,
		tasks:  tasks,
		logs:   logs,
		mapper: mapper.NewVideoMapper(),
	}
}

func (c *videoController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/video/v1")
	h.Get("/state", c.GetState)
	h.Get("/videos", c.ListVideos)
	h.Delete("/videos", c.RemoveVideo)
	h.Post("/select", c.Select)
	h.Delete("/cache", c.ClearCache)
	h.Post("/restore", c.RestoreAnalysis)
	h.Post("/analyze", c.Analyze)
	h.Get("/analysis", c.GetAnalysis)
	h.Post("/highlights", c.GenerateHighlights)
	h.Get("/highlights", c.GetHighlights)
	h.Get("/logs", c.GetLogs)

	rag := h.Group("/rag")
	rag.Post("/setup", c.SetupConversation)
	rag.Post("/restore", c.RestoreConversation)
	rag.Post("/ask", c.AskQuestion)
	rag.Get("/session", c.GetSession)
}

// StatusForError maps service errors onto HTTP statuses for
// serverutils.ErrorHandlerMiddleware.
func StatusForError(err error) (int, bool) {
	var producerErr *service.ProducerError
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest, true
	case errors.Is(err, service.ErrNotReady):
		return fiber.StatusConflict, true
	case errors.As(err, &producerErr):
		return fiber.StatusBadGateway, true
	}
	return 0, false
}

func (c *videoController) GetState(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get video state", c.videos.Snapshot()))
}

func (c *videoController) ListVideos(ctx *fiber.Ctx) error {
	res, err := c.videos.ListVideos(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list videos", res))
}

func (c *videoController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	c.videos.Select(req.VideoURL, req.Meta)
	return ctx.JSON(serverutils.SuccessResponse("Success select video", c.videos.Snapshot()))
}

func (c *videoController) RemoveVideo(ctx *fiber.Ctx) error {
	var req dto.RemoveVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.videos.RemoveVideo(ctx.UserContext(), req.FileName, req.VideoURL); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete video", nil))
}

func (c *videoController) ClearCache(ctx *fiber.Ctx) error {
	locator, err := requiredQuery(ctx, "video_url")
	if err != nil {
		return err
	}

	c.videos.Delete(ctx.UserContext(), locator)
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear video cache", nil))
}

func (c *videoController) RestoreAnalysis(ctx *fiber.Ctx) error {
	var req dto.VideoRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.videos.RestoreFromAuthority(ctx.UserContext(), req.VideoURL)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success restore analysis", dto.AnalysisResponse{
		VideoURL: req.VideoURL,
		Found:    res != nil,
		Analysis: res,
	}))
}

func (c *videoController) Analyze(ctx *fiber.Ctx) error {
	var req dto.VideoRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.tasks.Analyze(ctx.UserContext(), req.VideoURL)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success analyze video", dto.AnalysisResponse{
		VideoURL: req.VideoURL,
		Found:    true,
		Analysis: res,
	}))
}

func (c *videoController) GetAnalysis(ctx *fiber.Ctx) error {
	locator, err := requiredQuery(ctx, "video_url")
	if err != nil {
		return err
	}

	res, found := c.videos.Analysis(locator)
	return ctx.JSON(serverutils.SuccessResponse("Success get analysis", dto.AnalysisResponse{
		VideoURL: locator,
		Found:    found,
		Analysis: res,
	}))
}

func (c *videoController) GenerateHighlights(ctx *fiber.Ctx) error {
	var req dto.GenerateHighlightsRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	batch, err := c.tasks.GenerateHighlights(ctx.UserContext(), c.mapper.ToHighlightRequest(&req))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success generate highlights", c.mapper.ToHighlightsResponse(req.VideoURL, batch)))
}

func (c *videoController) GetHighlights(ctx *fiber.Ctx) error {
	locator, err := requiredQuery(ctx, "video_url")
	if err != nil {
		return err
	}

	batch, _ := c.videos.Highlights(locator)
	return ctx.JSON(serverutils.SuccessResponse("Success get highlights", c.mapper.ToHighlightsResponse(locator, batch)))
}

func (c *videoController) SetupConversation(ctx *fiber.Ctx) error {
	var req dto.VideoRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	ready, err := c.tasks.SetupConversation(ctx.UserContext(), req.VideoURL)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success setup conversation", dto.SetupConversationResponse{
		VideoURL: req.VideoURL,
		Ready:    ready,
	}))
}

func (c *videoController) RestoreConversation(ctx *fiber.Ctx) error {
	var req dto.VideoRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	conv, err := c.videos.RestoreConversation(ctx.UserContext(), req.VideoURL)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success restore conversation",
		c.mapper.ToSessionResponse(req.VideoURL, c.isReady(req.VideoURL), conv)))
}

func (c *videoController) AskQuestion(ctx *fiber.Ctx) error {
	var req dto.AskQuestionRequest
	if err := c.parse(ctx, &req); err != nil {
		return err
	}

	reply, err := c.tasks.AskQuestion(ctx.UserContext(), req.VideoURL, req.Question)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success ask question", dto.AskQuestionResponse{
		VideoURL: req.VideoURL,
		Reply:    c.mapper.ToMessageResponse(reply),
		Dropped:  reply == nil,
	}))
}

func (c *videoController) GetSession(ctx *fiber.Ctx) error {
	locator, err := requiredQuery(ctx, "video_url")
	if err != nil {
		return err
	}

	conv := c.videos.Session(ctx.UserContext(), locator)
	return ctx.JSON(serverutils.SuccessResponse("Success get session",
		c.mapper.ToSessionResponse(locator, c.isReady(locator), conv)))
}

func (c *videoController) GetLogs(ctx *fiber.Ctx) error {
	entries, err := c.logs.GetLogs(ctx.Query("level"), ctx.QueryInt("limit", 50), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", entries))
}

func (c *videoController) parse(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return serverutils.ValidateRequest(req)
}

func (c *videoController) isReady(locator string) bool {
	snap := c.videos.Snapshot()
	return snap.ActiveLocator == locator && snap.Ready
}

func requiredQuery(ctx *fiber.Ctx, key string) (string, error) {
	value := ctx.Query(key)
	if value == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, key+" is required")
	}
	return value, nil
}
