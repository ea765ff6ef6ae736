package hal

import "sync"

// hostFramebuffer is double buffered: the engine draws into buf and Present
// publishes it to front, which the window reads.
type hostFramebuffer struct {
	mu       sync.Mutex
	width    int
	height   int
	stride   int
	buf      []byte
	front    []byte
	presents uint64

	onPresent func(n uint64)
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	stride := width * 2
	return &hostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
		front:  make([]byte, stride*height),
	}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.stride }
func (f *hostFramebuffer) Buffer() []byte      { return f.buf }

func (f *hostFramebuffer) Present() error {
	f.mu.Lock()
	copy(f.front, f.buf)
	f.presents++
	n := f.presents
	f.mu.Unlock()
	if f.onPresent != nil {
		f.onPresent(n)
	}
	return nil
}

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := PackRGB565(r, g, b)
	for i := 0; i+1 < len(f.buf); i += 2 {
		PutRGB565(f.buf, i, pixel)
	}
}

// snapshotRGBA converts the last presented frame into dst (RGBA, 4 bytes per
// pixel) unless nothing was presented since the present count seen. It
// returns the current present count.
func (f *hostFramebuffer) snapshotRGBA(dst []byte, seen uint64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presents == seen {
		return seen
	}
	for i := 0; i+1 < len(f.front) && (i/2)*4+3 < len(dst); i += 2 {
		r, g, b := UnpackRGB565(uint16(f.front[i]) | uint16(f.front[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = g
		dst[j+2] = b
		dst[j+3] = 0xFF
	}
	return f.presents
}
