package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// VisualizeInput describes a trip visualization request.
type VisualizeInput struct {
	TripID    string
	Prompt    string
	Image     []byte // optional reference photo
	ImageName string
}

// Visualize asks the service to render a trip visual. The render may
// finish asynchronously; see VisualizeResult.VideoStatus.
func (c *Client) Visualize(ctx context.Context, in VisualizeInput) (VisualizeResult, error) {
	token, userID, err := c.authorize(ctx)
	if err != nil {
		return VisualizeResult{}, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"trip_id", in.TripID},
		{"user_id", userID},
		{"prompt", in.Prompt},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return VisualizeResult{}, fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}
	if len(in.Image) > 0 {
		name := in.ImageName
		if name == "" {
			name = "image.png"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return VisualizeResult{}, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(in.Image); err != nil {
			return VisualizeResult{}, fmt.Errorf("failed to write image part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return VisualizeResult{}, fmt.Errorf("failed to finish form: %w", err)
	}

	path := fmt.Sprintf("/api/trips/%s/visualize", url.PathEscape(in.TripID))
	req, err := c.newRequest(ctx, http.MethodPost, path, token, &body)
	if err != nil {
		return VisualizeResult{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result VisualizeResult
	if err := c.do(req, &result); err != nil {
		return VisualizeResult{}, err
	}
	return result, nil
}

// ListVisuals returns every visual stored for a trip, for all users.
func (c *Client) ListVisuals(ctx context.Context, tripID string) ([]Visual, error) {
	token, _, err := c.authorize(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/trips/%s/visuals", url.PathEscape(tripID))
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return decodeList[Visual](raw, "visuals")
}

// VisualsForUser keeps the visuals that belong to userID, preserving order.
func VisualsForUser(visuals []Visual, userID string) []Visual {
	out := make([]Visual, 0, len(visuals))
	for _, v := range visuals {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out
}
