package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"
	"gemsmith/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// editInstruction precedes the user prompt on every edit call so the model
// treats the uploaded raster as the piece to render, not as a style hint.
const editInstruction = "Render the jewelry piece shown in the provided image as a finished, " +
	"photorealistic product photograph. Preserve the shape, proportions, stone placement, and " +
	"overall design of the original."

// GptImageAdapter speaks the multipart image-edit API: binary image parts
// plus instructions in one form POST, inline base64 image data back.
type GptImageAdapter struct {
	client *resty.Client
	cfg    config.GptImageConfig
}

// NewGptImageAdapter wires the adapter to a resty client and config.
func NewGptImageAdapter(client *resty.Client, cfg config.GptImageConfig) *GptImageAdapter {
	return &GptImageAdapter{client: client, cfg: cfg}
}

var _ Adapter = (*GptImageAdapter)(nil)

// Key implements Adapter.
func (a *GptImageAdapter) Key() string {
	return "gptimage"
}

type editResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate implements Adapter. AuxImages carry the rasters to edit; each
// becomes one image file part after any data-URL wrapping is removed.
func (a *GptImageAdapter) Generate(ctx context.Context, in Input) (*Output, error) {
	req := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+a.cfg.APIKey).
		SetMultipartFormData(map[string]string{
			"model":  a.cfg.Model,
			"prompt": editInstruction + "\n\n" + in.Prompt,
			"size":   a.cfg.Size,
		})

	for i, img := range in.AuxImages {
		raw, err := normalizeImageBytes(img)
		if err != nil {
			return nil, errors.NewInvalidInput(fmt.Sprintf("image %d is not decodable: %v", i, err))
		}
		req.SetMultipartField("image[]", fmt.Sprintf("input-%d.png", i), "image/png", bytes.NewReader(raw))
	}

	resp, err := req.Post(a.cfg.BaseURL + "/images/edits")
	if err != nil {
		return nil, errors.NewTransportFailure(a.Key(), err)
	}

	if !is2xx(resp.StatusCode()) {
		if msg, ok := vendorErrorMessage(resp.Body()); ok {
			return nil, errors.NewVendorError(a.Key(), msg, resp.StatusCode())
		}
		return nil, errors.NewVendorProtocolError(a.Key(), "error body is not valid JSON", nil)
	}

	var parsed editResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, errors.NewVendorProtocolError(a.Key(), "body is not valid JSON", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return nil, errors.NewVendorProtocolError(a.Key(), "missing b64_json image data", nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, errors.NewVendorProtocolError(a.Key(), "image data is not valid base64", err)
	}

	return &Output{ImageBytes: decoded}, nil
}

// normalizeImageBytes unwraps rasters that arrive as a base64 data URL
// instead of raw bytes.
func normalizeImageBytes(img []byte) ([]byte, error) {
	if bytes.HasPrefix(img, []byte("data:")) {
		return utils.DecodeImagePayload(string(img))
	}
	return img, nil
}
