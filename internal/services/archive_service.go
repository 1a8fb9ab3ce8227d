package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/storage"
	"github.com/yoockh/voicedesk/internal/utils"
)

const exportURLTTL = 15 * time.Minute

type ExportResult struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

// ArchiveService exposes stored analyses to operators: filtered listing and
// export of one record to object storage.
type ArchiveService interface {
	List(ctx context.Context, f repositories.AnalysisFilter) ([]models.AnalysisRecord, error)
	Export(ctx context.Context, id string) (*ExportResult, error)
}

type archiveService struct {
	store    repositories.AnalysisRepository
	uploader storage.Uploader
	signer   storage.Signer
	log      *logrus.Logger
}

// NewArchiveService accepts a nil store or uploader. signer may be nil, in
// which case exports return the storage path.
func NewArchiveService(store repositories.AnalysisRepository, uploader storage.Uploader, signer storage.Signer, log *logrus.Logger) ArchiveService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &archiveService{store: store, uploader: uploader, signer: signer, log: log}
}

func (s *archiveService) List(ctx context.Context, f repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	const op = "ArchiveService.List"

	if s.store == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "analysis store is not configured", nil)
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "type must be voice_call or chat", nil)
	}

	rows, err := s.store.List(ctx, f)
	if err != nil {
		var ae *utils.AppError
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to list analyses", err)
	}
	if rows == nil {
		rows = []models.AnalysisRecord{}
	}
	return rows, nil
}

func (s *archiveService) Export(ctx context.Context, id string) (*ExportResult, error) {
	const op = "ArchiveService.Export"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	if s.store == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "analysis store is not configured", nil)
	}
	if s.uploader == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "export bucket is not configured", nil)
	}

	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "no analysis cached for this conversation", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load analysis", err)
	}

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode analysis", err)
	}

	object := "analysis/" + id + "/" + uuid.NewString() + ".json"
	path, err := s.uploader.Upload(ctx, object, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload export", err)
	}

	out := &ExportResult{Object: object, URL: path}
	if s.signer != nil {
		signed, err := s.signer.SignedGetURL(ctx, object, exportURLTTL)
		if err != nil {
			s.log.WithError(err).WithField("object", object).Warn("failed to sign export url")
		} else {
			out.URL = signed
		}
	}
	return out, nil
}
