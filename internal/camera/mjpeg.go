package camera

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"time"
)

// MJPEGSource reads frames from a motion-JPEG HTTP stream, the common
// output format of IP cameras and phone camera apps. MJPEG is a
// multipart stream of JPEG parts, so the standard library parses it
// natively.
type MJPEGSource struct {
	url    string
	client *http.Client
	resp   *http.Response
	reader *multipart.Reader
}

// NewMJPEGSource creates a source for the given stream URL.
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url: url,
		// No overall timeout: the response body is a never-ending
		// stream. Dial problems still fail fast via the transport.
		client: &http.Client{Transport: &http.Transport{
			ResponseHeaderTimeout: 10 * time.Second,
		}},
	}
}

// Open connects to the stream and prepares the multipart reader.
func (s *MJPEGSource) Open(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("%w: building stream request: %v", ErrCameraUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: connecting to %s: %v", ErrCameraUnavailable, s.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("%w: stream returned status %d", ErrCameraUnavailable, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("%w: not an MJPEG stream (content-type %q)", ErrCameraUnavailable, resp.Header.Get("Content-Type"))
	}

	s.resp = resp
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// ReadFrame decodes the next JPEG part from the stream.
func (s *MJPEGSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("%w: source not opened", ErrCameraUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: reading stream part: %v", ErrCameraUnavailable, err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding frame: %v", ErrCameraUnavailable, err)
	}
	return img, nil
}

// Close releases the HTTP stream.
func (s *MJPEGSource) Close() error {
	if s.resp != nil {
		err := s.resp.Body.Close()
		s.resp = nil
		s.reader = nil
		return err
	}
	return nil
}
