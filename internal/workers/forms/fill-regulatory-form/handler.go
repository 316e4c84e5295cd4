package fillregulatoryform

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"afh-workers/internal/common/aws"
	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/observability"
	"afh-workers/internal/common/validation"
	"afh-workers/internal/forms"
	"afh-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "fill-regulatory-form"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocumentUploader stores a rendered document and returns where to fetch it.
type DocumentUploader interface {
	Upload(ctx context.Context, name, contentType string, body []byte, metadata map[string]string) (*aws.StoredObject, error)
}

type Handler struct {
	config *Config
	filler *forms.Filler
	store  DocumentUploader
	obs    *observability.Observability
	logger logger.Logger
	now    func() time.Time
}

// NewHandler wires the worker. store may be nil, in which case documents are
// returned inline.
func NewHandler(config *Config, filler *forms.Filler, store DocumentUploader, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		filler: filler,
		store:  store,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	log := logger.ForJob(h.logger, job)
	log.Info("processing job", nil)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job, apperrors.NewInputParseFailedError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output, log)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	formType := models.FormType(strings.ToLower(strings.TrimSpace(string(input.FormType))))
	layout, err := h.filler.Registry().Get(formType)
	if err != nil {
		return nil, apperrors.NewFormTypeUnknownError(string(input.FormType))
	}

	format := strings.ToLower(strings.TrimSpace(input.OutputFormat))
	switch format {
	case "", FormatPDF:
		format = FormatPDF
	case FormatXLSX:
		if formType != models.FormTypeMAR {
			return nil, apperrors.NewFormDataInvalidError(
				fmt.Sprintf("outputFormat %s is only available for %s", FormatXLSX, models.FormTypeMAR))
		}
	default:
		return nil, apperrors.NewFormDataInvalidError(fmt.Sprintf("unsupported outputFormat %q", input.OutputFormat))
	}

	data := input.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	if err := validateData(layout, data); err != nil {
		return nil, err
	}

	body, pages, contentType, err := h.render(ctx, formType, format, data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(body)
	generatedAt := h.now().UTC()
	output := &Output{
		GeneratedForm: models.GeneratedForm{
			FormType:    formType,
			FileName:    fileName(input, formType, format, generatedAt),
			ContentType: contentType,
			PageCount:   pages,
			SizeBytes:   len(body),
			SHA256:      hex.EncodeToString(sum[:]),
			GeneratedAt: generatedAt,
		},
	}

	if err := h.deliver(ctx, input, output, body); err != nil {
		return nil, err
	}

	h.obs.RecordFormPages(ctx, string(formType), pages)
	h.logger.Info("form generated", map[string]interface{}{
		"formType":   formType,
		"format":     format,
		"pages":      pages,
		"sizeBytes":  len(body),
		"stored":     output.StorageKey != "",
		"residentId": input.ResidentID,
	})
	return output, nil
}

func validateData(layout *forms.Layout, data map[string]interface{}) error {
	if len(layout.Required) == 0 {
		return nil
	}
	result, err := validation.ValidateDocument(validation.RequiredFieldsSchema(layout.Required), data)
	if err != nil {
		return apperrors.NewFormDataInvalidError(err.Error())
	}
	if !result.Valid {
		msgs := result.GetErrorMessages()
		return apperrors.NewFormDataInvalidError(strings.Join(msgs, "; ")).
			WithMetadata("validationErrors", msgs)
	}
	return nil
}

func (h *Handler) render(ctx context.Context, formType models.FormType, format string, data map[string]interface{}) ([]byte, int, string, error) {
	if format == FormatXLSX {
		body, err := forms.ExportMARWorkbook(data)
		if err != nil {
			return nil, 0, "", apperrors.NewFormRenderFailedError(string(formType), err)
		}
		return body, 1, contentTypeXLSX, nil
	}

	doc, err := h.filler.Fill(ctx, formType, data)
	switch {
	case err == nil:
		return doc.Bytes, doc.PageCount, contentTypePDF, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, 0, "", apperrors.NewTimeoutError("form-renderer", err)
	case errors.Is(err, forms.ErrUnknownFormType):
		return nil, 0, "", apperrors.NewFormTypeUnknownError(string(formType))
	default:
		return nil, 0, "", apperrors.NewFormRenderFailedError(string(formType), err)
	}
}

// deliver uploads the document when storage is configured, otherwise inlines
// it within the size limit.
func (h *Handler) deliver(ctx context.Context, input *Input, output *Output, body []byte) error {
	if h.store == nil {
		if limit := h.config.MaxInlineBytes; limit > 0 && len(body) > limit {
			return apperrors.NewFormTooLargeError(len(body), limit)
		}
		output.ContentBase64 = base64.StdEncoding.EncodeToString(body)
		return nil
	}

	owner := input.FacilityID
	if owner == "" {
		owner = "unassigned"
	}
	name := path.Join(safeName(owner), string(output.FormType), uuid.NewString()+"-"+output.FileName)

	obj, err := h.store.Upload(ctx, name, output.ContentType, body, map[string]string{
		"form-type":   string(output.FormType),
		"sha256":      output.SHA256,
		"resident-id": input.ResidentID,
	})
	if err != nil {
		return apperrors.NewFormUploadFailedError(name, err)
	}

	expires := obj.ExpiresAt
	output.StorageKey = obj.Key
	output.DownloadURL = obj.DownloadURL
	output.ExpiresAt = &expires
	return nil
}

func fileName(input *Input, formType models.FormType, format string, at time.Time) string {
	ext := "." + format
	if name := safeName(input.FileName); name != "" {
		if !strings.HasSuffix(strings.ToLower(name), ext) {
			name += ext
		}
		return name
	}

	subject := input.ResidentID
	if subject == "" {
		subject = input.FacilityID
	}
	parts := []string{string(formType)}
	if s := safeName(subject); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, at.Format("20060102"))
	return strings.Join(parts, "-") + ext
}

func safeName(s string) string {
	s = unsafeFileChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "._")
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
