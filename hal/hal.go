package hal

// Logger is the process output device. Each call writes one line.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// PixelFormat is the encoding of Framebuffer.Buffer.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp little-endian: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is the render target handed to the scene each frame.
//
// Buffer and Present belong to the render goroutine. The host reads presented
// frames through its own copy.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode names the keys the viewer reacts to.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyTab
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyF1
	KeyF2
	KeyF3
)

// KeyEvent is a keyboard event. Text input arrives with Code KeyUnknown and a
// non-zero Rune.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard delivers key events without blocking the sender.
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display owns the framebuffer. Closed reports that the user or the host
// shut the surface; the render step stops once it is true.
type Display interface {
	Framebuffer() Framebuffer
	Closed() bool
}

// Input groups the input devices. A nil Keyboard means none is attached.
type Input interface {
	Keyboard() Keyboard
}

// HAL is everything the viewer needs from the host process.
type HAL interface {
	Logger() Logger
	Display() Display
	Input() Input
}
