package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/metrics"
	"loan-workbench/internal/models"
)

// DefaultMaxFileBytes caps a single persisted attachment.
const DefaultMaxFileBytes int64 = 2 << 20

// draftSchema describes the snapshot written under KeyDraft. Load treats a
// snapshot that fails it as absent.
const draftSchema = `{
  "type": "object",
  "required": ["personal", "employee", "other", "coMaker"],
  "properties": {
    "personal": {
      "type": "object",
      "required": ["fullName", "contactNo", "address", "headOfHousehold", "dependents", "yearsLivingHere", "housingStatus"],
      "additionalProperties": {"type": "string"}
    },
    "employee": {
      "type": "object",
      "required": ["companyName", "sector", "position", "employmentDuration", "salary", "typeOfSalary"],
      "additionalProperties": {"type": "string"}
    },
    "other": {
      "type": "object",
      "required": ["communityPosition", "paluwagaParticipation", "otherIncomeSources", "disasterPreparednessStrategy"],
      "additionalProperties": {"type": "string"}
    },
    "coMaker": {
      "type": "object",
      "required": ["fullName", "contactNo", "address", "howManyMonthsYears", "salary", "relationshipWithApplicant"],
      "additionalProperties": {"type": "string"}
    }
  }
}`

var draftSchemaCompiled = mustCompile(draftSchema)

func mustCompile(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// persistedFile is the on-disk form of one attachment.
type persistedFile struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	DataURL string `json:"dataUrl"`
}

// DraftStore mirrors the in-progress draft and its attachments. Writes never
// fail from the caller's point of view: the in-memory state stays
// authoritative and persistence errors are logged and counted.
type DraftStore struct {
	kv           KV
	logger       logger.Logger
	maxFileBytes int64
}

func NewDraftStore(kv KV, log logger.Logger, maxFileBytes int64) *DraftStore {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &DraftStore{kv: kv, logger: log, maxFileBytes: maxFileBytes}
}

// MaxFileBytes is the per-file ceiling.
func (s *DraftStore) MaxFileBytes() int64 {
	return s.maxFileBytes
}

// CheckFile rejects a file that could not be persisted.
func (s *DraftStore) CheckFile(slot models.FileSlot, file *models.AttachedFile) error {
	if file != nil && file.Size() > s.maxFileBytes {
		return apperrors.NewFileTooLargeError(string(slot), file.Size(), s.maxFileBytes)
	}
	return nil
}

// Save writes a full snapshot of draft.
func (s *DraftStore) Save(ctx context.Context, draft models.Draft) {
	raw, err := json.Marshal(draft)
	if err != nil {
		s.fail("save_draft", err)
		return
	}
	if err := s.kv.Set(ctx, KeyDraft, string(raw)); err != nil {
		s.fail("save_draft", err)
	}
}

// Load returns the saved draft, or nil when nothing usable is stored.
func (s *DraftStore) Load(ctx context.Context) *models.Draft {
	raw, found, err := s.kv.Get(ctx, KeyDraft)
	if err != nil {
		s.fail("load_draft", err)
		return nil
	}
	if !found || raw == "" {
		return nil
	}

	result, err := draftSchemaCompiled.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil || !result.Valid() {
		s.logger.Warn("Discarding unreadable draft snapshot", map[string]interface{}{
			"key": KeyDraft,
		})
		return nil
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil
	}
	return &draft
}

// Clear removes the draft snapshot.
func (s *DraftStore) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, KeyDraft); err != nil {
		s.fail("clear_draft", err)
	}
}

// SaveFiles writes every attachment. Files over the ceiling are left out of
// the snapshot; callers reject them earlier with CheckFile.
func (s *DraftStore) SaveFiles(ctx context.Context, files models.Files) {
	out := make(map[models.FileSlot]persistedFile, len(files))
	for _, slot := range files.Present() {
		f := files[slot]
		if f.Size() > s.maxFileBytes {
			s.logger.Warn("Attachment too large to persist", map[string]interface{}{
				"slot":  string(slot),
				"size":  f.Size(),
				"limit": s.maxFileBytes,
			})
			continue
		}
		out[slot] = persistedFile{
			Name:    f.Name,
			Type:    f.ContentType,
			Size:    f.Size(),
			DataURL: f.DataURL(),
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		s.fail("save_files", err)
		return
	}
	if err := s.kv.Set(ctx, KeyFiles, string(raw)); err != nil {
		s.fail("save_files", err)
	}
}

// LoadFiles rebuilds attachments from their data URLs. Entries that cannot
// be decoded are skipped.
func (s *DraftStore) LoadFiles(ctx context.Context) models.Files {
	files := models.Files{}

	raw, found, err := s.kv.Get(ctx, KeyFiles)
	if err != nil {
		s.fail("load_files", err)
		return files
	}
	if !found || raw == "" {
		return files
	}

	var stored map[string]persistedFile
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("Discarding unreadable file snapshot", map[string]interface{}{"key": KeyFiles})
		return files
	}

	for name, pf := range stored {
		slot := models.FileSlot(name)
		if !slot.Valid() {
			continue
		}
		contentType, data, ok := decodeDataURL(pf.DataURL)
		if !ok {
			continue
		}
		if pf.Type != "" {
			contentType = pf.Type
		}
		files[slot] = &models.AttachedFile{Name: pf.Name, ContentType: contentType, Data: data}
	}
	return files
}

func (s *DraftStore) ClearFiles(ctx context.Context) {
	if err := s.kv.Delete(ctx, KeyFiles); err != nil {
		s.fail("clear_files", err)
	}
}

// SaveStep remembers the current form step between runs.
func (s *DraftStore) SaveStep(ctx context.Context, step int) {
	if err := s.kv.Set(ctx, KeyStep, strconv.Itoa(step)); err != nil {
		s.fail("save_step", err)
	}
}

// LoadStep returns the remembered step, or 0 when none is stored.
func (s *DraftStore) LoadStep(ctx context.Context) int {
	raw, found, err := s.kv.Get(ctx, KeyStep)
	if err != nil {
		s.fail("load_step", err)
		return 0
	}
	if !found {
		return 0
	}
	step, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return step
}

func (s *DraftStore) fail(op string, err error) {
	metrics.StorageErrors.WithLabelValues(op).Inc()
	s.logger.Error("Local persistence failed", map[string]interface{}{
		"op":    op,
		"error": err.Error(),
	})
}

// decodeDataURL parses "data:<type>;base64,<payload>".
func decodeDataURL(u string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, false
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return contentType, data, true
}
