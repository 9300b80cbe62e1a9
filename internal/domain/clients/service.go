package clients

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/blobstore"
)

// MaxPhotoSize caps client photo uploads.
const MaxPhotoSize = 5 << 20

type Service struct {
	clients ClientRepository
	photos  blobstore.Store
	loc     *time.Location
	now     func() time.Time
}

func NewService(clients ClientRepository, photos blobstore.Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{clients: clients, photos: photos, loc: loc, now: time.Now}
}

func trimAll(c *Client) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.CPF = strings.TrimSpace(c.CPF)
	c.BirthDate = strings.TrimSpace(c.BirthDate)
	c.Occupation = strings.TrimSpace(c.Occupation)
}

func checkBirthDate(c *Client) error {
	if c.BirthDate == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, c.BirthDate); err != nil {
		return fmt.Errorf("%w: birth_date must be YYYY-MM-DD", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, c *Client) error {
	trimAll(c)
	required := []struct{ field, value string }{
		{"name", c.Name},
		{"phone", c.Phone},
		{"cpf", c.CPF},
		{"birth_date", c.BirthDate},
		{"occupation", c.Occupation},
		{"address", c.Address},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalid, r.field)
		}
	}
	if err := checkBirthDate(c); err != nil {
		return err
	}
	if c.ClientSince == "" {
		c.ClientSince = s.now().In(s.loc).Format(dateLayout)
	}
	c.PhotoURL = nil
	return s.clients.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

// Update requires only the name; every other field is replaced as sent.
func (s *Service) Update(ctx context.Context, c *Client) error {
	trimAll(c)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := checkBirthDate(c); err != nil {
		return err
	}
	return s.clients.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.clients.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Client, int, error) {
	return s.clients.Search(ctx, strings.TrimSpace(query), limit, offset)
}

// Photo is an upload received from a multipart form.
type Photo struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadPhoto stores the photo under clients/<id>-<unixMillis>.<ext> and
// saves its public URL on the client right away.
func (s *Service) UploadPhoto(ctx context.Context, id uuid.UUID, p Photo) (*Client, error) {
	if p.Size > MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}
	if !strings.HasPrefix(p.ContentType, "image/") {
		return nil, ErrNotImage
	}
	if _, err := s.clients.GetByID(ctx, id); err != nil {
		return nil, err
	}
	objectPath := fmt.Sprintf("clients/%s-%d%s", id, s.now().UnixMilli(), photoExt(p.Filename, p.ContentType))
	obj, err := s.photos.Put(ctx, objectPath, p.ContentType, io.LimitReader(p.Content, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}
	if obj.Size > MaxPhotoSize {
		if derr := s.photos.Delete(ctx, obj.Path); derr != nil {
			zerolog.Ctx(ctx).Warn().Err(derr).Str("path", obj.Path).Msg("remove oversized photo")
		}
		return nil, ErrPhotoTooLarge
	}
	if err := s.clients.SetPhotoURL(ctx, id, obj.URL); err != nil {
		return nil, err
	}
	return s.clients.GetByID(ctx, id)
}

// photoExt keeps the uploaded extension when it is a plain alphanumeric
// suffix, otherwise derives one from the content type.
func photoExt(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 1 && len(ext) <= 6 && strings.IndexFunc(ext[1:], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) < 0 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
