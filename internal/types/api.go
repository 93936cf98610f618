package types

// GenerateAPIRequest is the JSON body accepted by POST /api/generate.
// Image fields carry base64 payloads, with or without a data-URL prefix.
type GenerateAPIRequest struct {
	Prompt      string   `json:"prompt"`
	Modality    string   `json:"modality"`
	Provider    string   `json:"provider,omitempty"`
	SketchImage string   `json:"sketch_image,omitempty"`
	SketchSVG   string   `json:"sketch_svg,omitempty"`
	CameraImage string   `json:"camera_image,omitempty"`
	AuxImages   []string `json:"aux_images,omitempty"`
}

// GenerateAPIResponse mirrors the DALL-E response layout so existing clients
// can consume either a hosted URL or inline base64 data.
type GenerateAPIResponse struct {
	Created  int64               `json:"created"`
	Provider string              `json:"provider"`
	Data     []GenerateImageData `json:"data"`
}

// GenerateImageData is a single generated image in the response.
type GenerateImageData struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

// ProviderListResponse is the body of GET /api/providers.
type ProviderListResponse struct {
	Default   string   `json:"default"`
	Providers []string `json:"providers"`
}
