package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
)

const defaultEmbeddingURL = "http://localhost:8000"

// HTTPEncoder computes face encodings with an external face embedding server
// (POST /embed/face, multipart field "file").
type HTTPEncoder struct {
	baseURL string
	client  *http.Client
	closed  atomic.Bool
}

// NewHTTPEncoder creates a new embedding server client
func NewHTTPEncoder(baseURL string) *HTTPEncoder {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &HTTPEncoder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage posts JPEG data as the "file" part of a multipart form.
func (c *HTTPEncoder) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (c *HTTPEncoder) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// Encode implements Encoder. Faces are returned in the server's detection order.
func (c *HTTPEncoder) Encode(ctx context.Context, imageData []byte) ([]Encoding, error) {
	if c.closed.Load() {
		return nil, ErrEncoderClosed
	}

	prepared, err := PrepareJPEG(imageData, constants.MaxImageSize)
	if err != nil {
		return nil, err
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, prepared)
	if err != nil {
		return nil, err
	}

	faces := resp.Faces
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].FaceIndex < faces[j].FaceIndex })

	encodings := make([]Encoding, 0, len(faces))
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		encodings = append(encodings, Encoding(f.Embedding))
	}
	return encodings, nil
}

// Close implements Encoder.
func (c *HTTPEncoder) Close() error {
	c.closed.Store(true)
	c.client.CloseIdleConnections()
	return nil
}
