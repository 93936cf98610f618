package apiserver

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"
	"gemsmith/internal/middleware"
	"gemsmith/internal/orchestrator"
	"gemsmith/internal/provider"
	"gemsmith/internal/service"
	"gemsmith/internal/sketch"
	"gemsmith/internal/types"
	"gemsmith/internal/utils"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the middleware stack, builds the orchestration
// graph, and registers the API routes.
func RegisterRoutes(e *echo.Echo, cfg *config.Config) {
	e.HTTPErrorHandler = middleware.ErrorHandler()

	e.Use(middleware.BearerAuth(cfg))
	e.Use(middleware.RequestLogger(cfg))
	e.Use(middleware.RateLimit(cfg))

	registry := provider.NewRegistry(utils.RestyVendorClient, cfg)
	interpreter := sketch.NewVisionInterpreter(utils.RestyVisionClient, cfg.Providers.Vision)
	orch := orchestrator.New(registry, interpreter, cfg.Generation)

	generationService := service.NewGenerationService(orch, cfg.Generation)
	providerService := service.NewProviderService(registry, cfg.Generation.DefaultProvider)

	e.POST("/api/generate", createGenerateHandler(generationService))
	e.GET("/api/providers", createProviderListHandler(providerService))
}

// createGenerateHandler handles one generation request end to end.
func createGenerateHandler(generationService service.GenerationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req types.GenerateAPIRequest
		if err := c.Bind(&req); err != nil {
			return errors.NewInvalidInput("request body is not valid JSON")
		}

		genReq, err := toGenerationRequest(req)
		if err != nil {
			return err
		}

		result, err := generationService.Generate(c.Request().Context(), genReq)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, toAPIResponse(result))
	}
}

// createProviderListHandler lists the registered providers.
func createProviderListHandler(providerService service.ProviderService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, providerService.ListProviders())
	}
}

// toGenerationRequest decodes the wire request into the orchestrator's
// normalized form.
func toGenerationRequest(req types.GenerateAPIRequest) (*types.GenerationRequest, error) {
	genReq := &types.GenerationRequest{
		RawPrompt:    req.Prompt,
		Modality:     types.Modality(req.Modality),
		ProviderKey:  req.Provider,
		SketchVector: req.SketchSVG,
	}

	if req.SketchImage != "" {
		data, err := utils.DecodeImagePayload(req.SketchImage)
		if err != nil {
			return nil, errors.NewInvalidInput("sketch_image is not valid base64")
		}
		genReq.SketchRaster = data
	}
	if req.CameraImage != "" {
		data, err := utils.DecodeImagePayload(req.CameraImage)
		if err != nil {
			return nil, errors.NewInvalidInput("camera_image is not valid base64")
		}
		genReq.CameraRaster = data
	}
	for i, img := range req.AuxImages {
		data, err := utils.DecodeImagePayload(img)
		if err != nil {
			return nil, errors.NewInvalidInput(fmt.Sprintf("aux_images[%d] is not valid base64", i))
		}
		genReq.AuxImages = append(genReq.AuxImages, data)
	}

	return genReq, nil
}

// toAPIResponse converts the orchestrator result into the wire response.
func toAPIResponse(result *types.GenerationResult) types.GenerateAPIResponse {
	data := types.GenerateImageData{URL: result.ImageURL}
	if len(result.ImageBytes) > 0 {
		data.B64JSON = base64.StdEncoding.EncodeToString(result.ImageBytes)
	}

	return types.GenerateAPIResponse{
		Created:  time.Now().Unix(),
		Provider: result.Provider,
		Data:     []types.GenerateImageData{data},
	}
}
