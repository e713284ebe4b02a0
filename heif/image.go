package heif

// Colourspace classifies a Reconstructed Image's channel semantics (§3
// Reconstructed Image).
type Colourspace int

const (
	ColourspaceUndefined Colourspace = iota
	ColourspaceYCbCr
	ColourspaceRGB
	ColourspaceMonochrome
)

// ChromaFormat classifies how chroma samples relate to luma samples, or
// how RGB(A) channels are interleaved (§3 Reconstructed Image).
type ChromaFormat int

const (
	ChromaUndefined ChromaFormat = iota
	ChromaMonochrome
	Chroma420
	Chroma422
	Chroma444
	ChromaInterleavedRGB
	ChromaInterleavedRGBA
	ChromaInterleavedRRGGBB   // 16-bit-per-channel RGB
	ChromaInterleavedRRGGBBAA // 16-bit-per-channel RGBA
)

// Plane is one channel's pixel data: a byte buffer with its own stride,
// independently owned by the Image.
type Plane struct {
	Width, Height int
	BitDepth      int
	Stride        int // >= Width * bytesPerSample, may be padded
	Data          []byte
}

// BytesPerSample returns ceil(BitDepth/8), the per-sample storage width.
func (p *Plane) BytesPerSample() int { return (p.BitDepth + 7) / 8 }

// Image is a decoded, composed pixel grid (§3 Reconstructed Image): the
// result of running an item (direct or derived) through codec decode and,
// for grid/iovl, composition. The channel set is immutable after
// construction; callers that need to modify pixels build a new Image.
type Image struct {
	Width, Height int
	Colourspace   Colourspace
	Chroma        ChromaFormat
	LittleEndian  bool // only meaningful for ChromaInterleavedRRGGBB(AA)

	// Planes holds one entry per channel, in a fixed order for the given
	// Chroma: monochrome/Y, Cb, Cr for YCbCr; a single interleaved plane
	// for the ChromaInterleaved* formats.
	Planes []Plane
}

// NewImage allocates an Image with freshly-allocated, zeroed planes sized
// for the given chroma format. Stride for each plane is width (or the
// appropriate subsampled width) times bytesPerSample, unpadded; callers
// needing alignment pad after construction.
func NewImage(width, height int, cs Colourspace, chroma ChromaFormat, bitDepth int) *Image {
	img := &Image{Width: width, Height: height, Colourspace: cs, Chroma: chroma}
	bytesPerSample := (bitDepth + 7) / 8

	newPlane := func(w, h int) Plane {
		stride := w * bytesPerSample
		return Plane{Width: w, Height: h, BitDepth: bitDepth, Stride: stride, Data: make([]byte, stride*h)}
	}

	switch chroma {
	case ChromaMonochrome:
		img.Planes = []Plane{newPlane(width, height)}
	case Chroma420:
		cw, ch := (width+1)/2, (height+1)/2
		img.Planes = []Plane{newPlane(width, height), newPlane(cw, ch), newPlane(cw, ch)}
	case Chroma422:
		cw := (width + 1) / 2
		img.Planes = []Plane{newPlane(width, height), newPlane(cw, height), newPlane(cw, height)}
	case Chroma444:
		img.Planes = []Plane{newPlane(width, height), newPlane(width, height), newPlane(width, height)}
	case ChromaInterleavedRGB, ChromaInterleavedRRGGBB:
		img.Planes = []Plane{{Width: width, Height: height, BitDepth: bitDepth, Stride: width * 3 * bytesPerSample, Data: make([]byte, width*3*bytesPerSample*height)}}
	case ChromaInterleavedRGBA, ChromaInterleavedRRGGBBAA:
		img.Planes = []Plane{{Width: width, Height: height, BitDepth: bitDepth, Stride: width * 4 * bytesPerSample, Data: make([]byte, width*4*bytesPerSample*height)}}
	}
	return img
}
