package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/services"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateSessionToken(sessionID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 2)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing session token for %s. Error %s ", sessionID, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, sessionID string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateSessionToken(sessionID)))
	return req
}

// NewMultipartRequest builds a form upload with a single image field.
func NewMultipartRequest(method, target, field, fileName string, data []byte, values map[string]string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range values {
		writer.WriteField(k, v)
	}
	if field != "" {
		part, _ := writer.CreateFormFile(field, fileName)
		io.Copy(part, bytes.NewReader(data))
	}
	writer.Close()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Add("Accept", "application/json")
	return req
}

func NewMultipartAuthRequest(method, target, sessionID, field, fileName string, data []byte, values map[string]string) *http.Request {
	req := NewMultipartRequest(method, target, field, fileName, data, values)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateSessionToken(sessionID)))
	return req
}

func NewRefString(data string) *string {
	return &data
}

// PNGBytes returns a solid w×h PNG.
func PNGBytes(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func FakePhoto(w, h int) models.ImageFile {
	return models.ImageFile{Name: "me.png", MIMEType: "image/png", Data: PNGBytes(w, h)}
}

// GeneratorMock answers every generation with labelled PNG images. Set Err
// to fail the next calls, or Gate to hold calls until it is closed.
type GeneratorMock struct {
	mu       sync.Mutex
	Err      error
	Gate     chan struct{}
	Started  chan string
	Captions []string
	Calls    []string
}

func (m *GeneratorMock) begin(ctx context.Context, name string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	gate, started, err := m.Gate, m.Started, m.Err
	m.mu.Unlock()
	if started != nil {
		started <- name
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *GeneratorMock) CallNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *GeneratorMock) images(n int) *services.Generation {
	generation := &services.Generation{Model: services.Flash25Image.String(), Usage: services.Usage{InputTokenCount: 10, OutputTokenCount: 20, TotalTokenCount: 30}}
	for i := 0; i < n; i++ {
		generation.Images = append(generation.Images, services.GeneratedImage{MIMEType: "image/png", Data: PNGBytes(i+2, i+2)})
	}
	return generation
}

func (m *GeneratorMock) ComposeOutfit(ctx context.Context, base models.ImageFile, items []models.ClothingItem) (*services.Generation, error) {
	if err := m.begin(ctx, "outfit"); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, services.ErrNoValidItems
	}
	return m.images(1), nil
}

func (m *GeneratorMock) GenerateContextVariations(ctx context.Context, base models.ImageFile, contexts []string) (*services.Generation, error) {
	if err := m.begin(ctx, "contexts"); err != nil {
		return nil, err
	}
	return m.images(len(contexts)), nil
}

func (m *GeneratorMock) CompositeBackground(ctx context.Context, person, background models.ImageFile) (*services.Generation, error) {
	if err := m.begin(ctx, "background"); err != nil {
		return nil, err
	}
	return m.images(1), nil
}

func (m *GeneratorMock) StyleTransfer(ctx context.Context, person, styleReference models.ImageFile, pose string) (*services.Generation, error) {
	if err := m.begin(ctx, "anime"); err != nil {
		return nil, err
	}
	return m.images(1), nil
}

func (m *GeneratorMock) GenerateAngles(ctx context.Context, base models.ImageFile) (*services.Generation, error) {
	if err := m.begin(ctx, "angles"); err != nil {
		return nil, err
	}
	return m.images(len(services.CameraAngles)), nil
}

func (m *GeneratorMock) Refine(ctx context.Context, image models.ImageFile, instruction string) (*services.Generation, error) {
	if err := m.begin(ctx, "refine"); err != nil {
		return nil, err
	}
	generation := m.images(1)
	generation.Images[0].Data = PNGBytes(9, 9)
	return generation, nil
}

func (m *GeneratorMock) GenerateCaptions(ctx context.Context, clothing string, contexts []string) (*services.Generation, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "captions")
	captions, err := m.Captions, m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if captions == nil {
		for _, c := range contexts {
			captions = append(captions, "Ready for "+c)
		}
	}
	return &services.Generation{Model: services.Flash25.String(), Captions: captions, Usage: services.Usage{TotalTokenCount: 5}}, nil
}

// StoreMock keeps records in memory.
type StoreMock struct {
	mu          sync.Mutex
	Generations []models.GenerationRecord
	Exports     map[uint]*models.ExportRecord
	Pruned      []time.Time
	nextID      uint
}

func NewStoreMock() *StoreMock {
	return &StoreMock{Exports: map[uint]*models.ExportRecord{}}
}

func (s *StoreMock) RecordGeneration(ctx context.Context, record *models.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	s.Generations = append(s.Generations, *record)
	return nil
}

func (s *StoreMock) GenerationRecords() []models.GenerationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GenerationRecord(nil), s.Generations...)
}

func (s *StoreMock) CreateExport(ctx context.Context, export *models.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	export.ID = s.nextID
	export.CreatedAt = time.Now()
	s.Exports[export.ID] = export
	return nil
}

func (s *StoreMock) GetExport(ctx context.Context, id uint) (*models.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	export, ok := s.Exports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return export, nil
}

func (s *StoreMock) MarkExportRemoved(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	export, ok := s.Exports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	export.RemovedAt = &now
	return nil
}

func (s *StoreMock) PruneGenerations(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pruned = append(s.Pruned, olderThan)
	var kept []models.GenerationRecord
	for _, g := range s.Generations {
		if !g.CreatedAt.Before(olderThan) {
			kept = append(kept, g)
		}
	}
	removed := int64(len(s.Generations) - len(kept))
	s.Generations = kept
	return removed, nil
}

type AWSProviderMock struct {
	mu       sync.Mutex
	MockUrl  string
	Uploaded map[string][]byte
	Deleted  []string
	FailWith error
}

func (a *AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (a *AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if a.MockUrl != "" {
		return a.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s?signed=1", fileKey), nil
}

func (a *AWSProviderMock) UploadToPresignedURL(ctx context.Context, url string, fileContent []byte) (int, error) {
	if a.FailWith != nil {
		return 500, a.FailWith
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Uploaded == nil {
		a.Uploaded = map[string][]byte{}
	}
	a.Uploaded[url] = fileContent
	return 200, nil
}

func (a *AWSProviderMock) DeleteObject(ctx context.Context, bucketName, fileKey string) error {
	if a.FailWith != nil {
		return a.FailWith
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Deleted = append(a.Deleted, fileKey)
	return nil
}

type URLCacheMock struct {
	Forgotten []string
}

func (m *URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", errors.New("empty key")
	}
	return "https://fakebucketurl.com/" + objectKey + "?cached=1", nil
}

func (m *URLCacheMock) Forget(ctx context.Context, objectKey string) error {
	m.Forgotten = append(m.Forgotten, objectKey)
	return nil
}

// TaskEnqueuerMock records enqueued asynq task types.
type TaskEnqueuerMock struct {
	mu       sync.Mutex
	Types    []string
	Payloads [][]byte
}

func (m *TaskEnqueuerMock) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Types = append(m.Types, task.Type())
	m.Payloads = append(m.Payloads, task.Payload())
	return &asynq.TaskInfo{Type: task.Type(), Payload: task.Payload()}, nil
}
