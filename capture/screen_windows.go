//go:build windows
// +build windows

package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"
	"unsafe"
)

const (
	SM_CXSCREEN    = 0
	SM_CYSCREEN    = 1
	SRCCOPY        = 0x00CC0020
	BI_RGB         = 0
	DIB_RGB_COLORS = 0

	// clipFrameInterval is the frame cadence inside a recorded clip.
	clipFrameInterval = 250 * time.Millisecond
)

type BITMAPINFOHEADER struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type BITMAPINFO struct {
	BmiHeader BITMAPINFOHEADER
	BmiColors [1]uint32
}

// NewScreenSource returns a Source capturing the primary display via
// GDI. Snapshots are JPEG at the given quality; clips are MJPEG
// (concatenated JPEG frames).
func NewScreenSource(quality int) Source {
	if quality == 0 {
		quality = 75
	}
	return &gdiSource{quality: quality}
}

type gdiSource struct {
	quality int
}

func (s *gdiSource) Acquire(ctx context.Context) (Stream, error) {
	stream := &gdiStream{quality: s.quality}
	// Probe one frame so acquisition fails fast when the desktop is
	// not capturable.
	if _, err := stream.grabFrame(); err != nil {
		return nil, fmt.Errorf("screen capture unavailable: %w", err)
	}
	return stream, nil
}

func (s *gdiSource) ScreenSize() (int, int) {
	width, _, _ := procGetSystemMetrics.Call(SM_CXSCREEN)
	height, _, _ := procGetSystemMetrics.Call(SM_CYSCREEN)
	return int(width), int(height)
}

type gdiStream struct {
	quality int
	mu      sync.Mutex
	closed  bool
}

func (g *gdiStream) Snapshot(ctx context.Context) ([]byte, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.grabFrame()
}

func (g *gdiStream) Record(ctx context.Context, duration time.Duration) ([]byte, error) {
	if err := g.check(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	ticker := time.NewTicker(clipFrameInterval)
	defer ticker.Stop()

	deadline := time.After(duration)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			if buf.Len() == 0 {
				return nil, fmt.Errorf("no frames recorded")
			}
			return buf.Bytes(), nil
		case <-ticker.C:
			frame, err := g.grabFrame()
			if err != nil {
				// A single failed frame does not abort the clip.
				continue
			}
			buf.Write(frame)
		}
	}
}

func (g *gdiStream) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *gdiStream) check() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("capture stream closed")
	}
	return nil
}

func (g *gdiStream) grabFrame() ([]byte, error) {
	img, err := g.takeScreenshot()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: g.quality}
	if err := jpeg.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *gdiStream) takeScreenshot() (image.Image, error) {
	width, _, _ := procGetSystemMetrics.Call(SM_CXSCREEN)
	height, _, _ := procGetSystemMetrics.Call(SM_CYSCREEN)

	hDC, _, _ := procGetDC.Call(0)
	if hDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer procReleaseDC.Call(0, hDC)

	hMemDC, _, _ := procCreateCompatibleDC.Call(hDC)
	if hMemDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hMemDC)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(hDC, width, height)
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	hOld, _, _ := procSelectObject.Call(hMemDC, hBitmap)
	if hOld == 0 {
		return nil, fmt.Errorf("SelectObject failed")
	}
	defer procSelectObject.Call(hMemDC, hOld)

	ret, _, _ := procBitBlt.Call(hMemDC, 0, 0, width, height, hDC, 0, 0, SRCCOPY)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed")
	}

	var bi BITMAPINFO
	bi.BmiHeader.BiSize = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.BiWidth = int32(width)
	bi.BmiHeader.BiHeight = -int32(height)
	bi.BmiHeader.BiPlanes = 1
	bi.BmiHeader.BiBitCount = 32
	bi.BmiHeader.BiCompression = BI_RGB

	bitmapDataSize := uintptr(width * height * 4)
	bitmapData := make([]byte, bitmapDataSize)

	ret, _, _ = procGetDIBits.Call(
		hMemDC,
		hBitmap,
		0,
		height,
		uintptr(unsafe.Pointer(&bitmapData[0])),
		uintptr(unsafe.Pointer(&bi)),
		DIB_RGB_COLORS,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed")
	}

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			i := (y*int(width) + x) * 4
			img.Set(x, y, color.RGBA{
				R: bitmapData[i+2],
				G: bitmapData[i+1],
				B: bitmapData[i+0],
				A: 255,
			})
		}
	}

	return img, nil
}
