package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"journal-review-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload is one file handed over by a client.
type Upload struct {
	FileName     string
	Size         int64
	Body         io.Reader
	ManuscriptID uint
	UploadedBy   uint
}

// ArtifactStore validates uploads and writes them to a Backend. The
// reference it returns is the object key.
type ArtifactStore struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
}

func NewArtifactStore(backend Backend, log *zap.Logger) *ArtifactStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArtifactStore{
		backend: backend,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Backend returns the underlying backend.
func (s *ArtifactStore) Backend() Backend {
	return s.backend
}

func (s *ArtifactStore) key(kind models.ArtifactKind, manuscriptID uint, ext string, at time.Time) string {
	owner := "incoming"
	if manuscriptID > 0 {
		owner = fmt.Sprintf("manuscripts/%d", manuscriptID)
	}
	return path.Join("artifacts", owner, string(kind), at.Format("2006/01"), s.newID()+ext)
}

// Store validates up for the given slot and writes it.
func (s *ArtifactStore) Store(ctx context.Context, kind models.ArtifactKind, up Upload) (*models.StoredArtifact, error) {
	ext, err := CheckName(kind, up.FileName, up.Size)
	if err != nil {
		return nil, err
	}
	if up.Body == nil {
		return nil, fmt.Errorf("%w: %s file is empty", ErrInvalidUpload, kind)
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, maxSizes[ext]+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s file is empty", ErrInvalidUpload, kind)
	}
	mimeType, err := CheckContent(ext, data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	now := s.now()
	ref := s.key(kind, up.ManuscriptID, ext, now)
	if err := s.backend.Put(ctx, ref, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return nil, fmt.Errorf("store %s: %w", kind, err)
	}

	s.log.Info("artifact stored",
		zap.String("ref", ref),
		zap.String("kind", string(kind)),
		zap.Uint("manuscript_id", up.ManuscriptID),
		zap.Int("size", len(data)))

	return &models.StoredArtifact{
		Ref:          ref,
		Kind:         kind,
		ManuscriptID: up.ManuscriptID,
		OriginalName: SafeName(up.FileName),
		Size:         int64(len(data)),
		MimeType:     mimeType,
		FileHash:     hex.EncodeToString(sum[:]),
		UploadedBy:   up.UploadedBy,
		UploadedAt:   now,
	}, nil
}

// StoreSet writes every upload present in files and returns the resulting
// reference set. Already written objects are removed when a later one fails.
func (s *ArtifactStore) StoreSet(ctx context.Context, files map[models.ArtifactKind]Upload) (models.ArtifactSet, []*models.StoredArtifact, error) {
	var set models.ArtifactSet
	var stored []*models.StoredArtifact
	for _, kind := range models.FileArtifactKinds {
		up, ok := files[kind]
		if !ok {
			continue
		}
		a, err := s.Store(ctx, kind, up)
		if err != nil {
			s.Cleanup(ctx, stored)
			return models.ArtifactSet{}, nil, err
		}
		stored = append(stored, a)
		switch kind {
		case models.ArtifactBlindedFile:
			set.Blinded = a.Ref
		case models.ArtifactFullFile:
			set.Full = a.Ref
		case models.ArtifactLatex:
			set.Latex = a.Ref
		case models.ArtifactCar:
			set.Car = a.Ref
		}
	}
	return set, stored, nil
}

// Cleanup deletes stored artifacts, logging failures.
func (s *ArtifactStore) Cleanup(ctx context.Context, stored []*models.StoredArtifact) {
	for _, a := range stored {
		if err := s.Delete(ctx, a.Ref); err != nil {
			s.log.Warn("failed to remove artifact", zap.String("ref", a.Ref), zap.Error(err))
		}
	}
}

// Open returns the bytes behind ref.
func (s *ArtifactStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	return s.backend.Open(ctx, ref)
}

func (s *ArtifactStore) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrNotFound
	}
	return s.backend.Delete(ctx, ref)
}

// PresignGet returns a download link when the backend supports it.
func (s *ArtifactStore) PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, bool, error) {
	p, ok := s.backend.(Presigner)
	if !ok {
		return "", false, nil
	}
	if !validRef(ref) {
		return "", true, ErrNotFound
	}
	url, err := p.PresignGet(ctx, ref, ttl)
	return url, true, err
}

func validRef(ref string) bool {
	if !strings.HasPrefix(ref, "artifacts/") {
		return false
	}
	for _, part := range strings.Split(ref, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
