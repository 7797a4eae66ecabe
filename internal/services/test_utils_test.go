package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// MockArchiveStore implements ArchiveStore in memory for testing
type MockArchiveStore struct {
	objects   map[string][]byte
	saveError error
	mu        sync.Mutex
}

func NewMockArchiveStore() *MockArchiveStore {
	return &MockArchiveStore{objects: make(map[string][]byte)}
}

func (m *MockArchiveStore) SaveArchive(_ context.Context, objectName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.objects[objectName] = data
	return nil
}

func (m *MockArchiveStore) ListArchives(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			names = append(names, key)
		}
	}
	return names, nil
}

func (m *MockArchiveStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// fakeCodec converts by renaming and can delay or fail per filename
type fakeCodec struct {
	delays map[string]time.Duration
	fail   map[string]error

	mu       sync.Mutex
	active   int
	peak     int
	observed []string
}

func (c *fakeCodec) Convert(content []byte, filename string) (ConversionResult, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.peak {
		c.peak = c.active
	}
	c.observed = append(c.observed, filename)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()

	if d, ok := c.delays[filename]; ok {
		time.Sleep(d)
	}
	if err, ok := c.fail[filename]; ok {
		return ConversionResult{}, err
	}
	return ConversionResult{
		OutputName: OutputName(filename, ".webp"),
		Data:       append([]byte("webp:"), content...),
	}, nil
}

func (c *fakeCodec) Format() string    { return "webp" }
func (c *fakeCodec) Extension() string { return ".webp" }

func (c *fakeCodec) peakConcurrency() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// recordingObserver counts calls made by the pipeline
type recordingObserver struct {
	mu          sync.Mutex
	uploads     int
	conversions int
	failures    int
	archives    int
	expired     int
}

func (o *recordingObserver) ObserveUpload(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uploads++
}

func (o *recordingObserver) ObserveConversion(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conversions++
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) ObserveArchive(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.archives++
}

func (o *recordingObserver) ObserveExpired(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expired += n
}

// sequenceGenerator returns ids from a fixed list, then falls back to uuids
type sequenceGenerator struct {
	mu  sync.Mutex
	ids []string
}

func (g *sequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return NewUUIDGenerator().Generate()
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

var errBoom = errors.New("boom")

func newTestStore() *MemorySessionStore {
	return NewMemorySessionStore(NewUUIDGenerator(), 0)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// encodeTestPNG returns a w x h PNG with a simple gradient
func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}
