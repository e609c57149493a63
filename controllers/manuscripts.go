package controllers

import (
	"mime/multipart"
	"net/http"

	"journal-review-api/models"
	"journal-review-api/services"
	"journal-review-api/storage"
	"journal-review-api/utils"

	"github.com/gin-gonic/gin"
)

// maxRequestBody bounds a multipart submission carrying all four files.
const maxRequestBody = 4 * storage.MaxUploadSize

// uploadFields are the multipart field names of the artifact slots.
var uploadFields = map[models.ArtifactKind]string{
	models.ArtifactBlindedFile: "blinded_file",
	models.ArtifactFullFile:    "full_file",
	models.ArtifactLatex:       "latex_sources",
	models.ArtifactCar:         "car_file",
}

// readUploads collects the artifact files present in the multipart form.
// The returned closer releases the opened file handles.
func readUploads(c *gin.Context, manuscriptID, userID uint) (map[models.ArtifactKind]storage.Upload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, err
	}
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	files := make(map[models.ArtifactKind]storage.Upload)
	for kind, field := range uploadFields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		files[kind] = storage.Upload{
			FileName:     fh.Filename,
			Size:         fh.Size,
			Body:         f,
			ManuscriptID: manuscriptID,
			UploadedBy:   userID,
		}
	}
	return files, closeAll, nil
}

func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)
}

// storeUploads validates and stores the uploaded artifacts.
func (h *Handler) storeUploads(c *gin.Context, manuscriptID uint) (models.ArtifactSet, []*models.StoredArtifact, bool) {
	files, closeAll, err := readUploads(c, manuscriptID, actorOf(c).UserID)
	defer closeAll()
	if err != nil {
		badRequest(c, "invalid multipart form: "+err.Error())
		return models.ArtifactSet{}, nil, false
	}
	set, stored, err := h.artifacts.StoreSet(c.Request.Context(), files)
	if err != nil {
		h.respondError(c, err)
		return models.ArtifactSet{}, nil, false
	}
	return set, stored, true
}

// SubmitManuscript - POST /api/v1/manuscripts (multipart)
func (h *Handler) SubmitManuscript(c *gin.Context) {
	limitBody(c)
	actor := actorOf(c)
	in := services.SubmissionInput{
		Title:       utils.SanitizeText(c.PostForm("title"), 500),
		ArticleType: utils.SanitizeText(c.PostForm("article_type"), 100),
		Abstract:    utils.SanitizeInput(c.PostForm("abstract")),
		Keywords:    utils.SanitizeText(c.PostForm("keywords"), 500),
		CodeRepo:    utils.SanitizeText(c.PostForm("code_repo"), 500),
		DataRepo:    utils.SanitizeText(c.PostForm("data_repo"), 500),
		AIStatement: utils.SanitizeInput(c.PostForm("ai_statement")),
		Conflicts:   utils.SanitizeInput(c.PostForm("conflicts")),
		CoverLetter: utils.SanitizeInput(c.PostForm("cover_letter")),
	}
	if !utils.ValidateURL(in.CodeRepo) || !utils.ValidateURL(in.DataRepo) {
		badRequest(c, "code_repo and data_repo must be http(s) URLs")
		return
	}

	set, stored, ok := h.storeUploads(c, 0)
	if !ok {
		return
	}
	in.Artifacts = set

	res, err := h.journal.Workflow.SubmitManuscript(c.Request.Context(), actor, in)
	if err != nil {
		h.artifacts.Cleanup(c.Request.Context(), stored)
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"manuscript": services.ProjectManuscript(actor, res.Manuscript, false),
		"transition": res.Transition,
		"artifacts":  stored,
	})
}

// ListManuscripts - GET /api/v1/manuscripts
func (h *Handler) ListManuscripts(c *gin.Context) {
	q := services.ListQuery{
		Limit:  intQuery(c, "limit", 50, 200),
		Offset: intQuery(c, "offset", 0, 0),
	}
	if raw := c.Query("stage"); raw != "" {
		stage, err := utils.ParseStage(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		q.Stage = stage
	}
	items, err := h.journal.Workflow.ListManuscripts(c.Request.Context(), actorOf(c), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": len(items)})
}

// GetManuscript - GET /api/v1/manuscripts/:id
func (h *Handler) GetManuscript(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	view, err := h.journal.Workflow.GetManuscript(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscript":  view,
		"next_stages": services.NextStages(view.Stage),
	})
}

// GetManuscriptHistory - GET /api/v1/manuscripts/:id/history
func (h *Handler) GetManuscriptHistory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	history, err := h.journal.Workflow.History(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

// UploadRevision - POST /api/v1/manuscripts/:id/revisions (multipart)
func (h *Handler) UploadRevision(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	limitBody(c)
	actor := actorOf(c)
	notes := utils.SanitizeInput(c.PostForm("revision_notes"))

	set, stored, ok := h.storeUploads(c, id)
	if !ok {
		return
	}
	res, err := h.journal.Workflow.UploadRevision(c.Request.Context(), actor, id, services.RevisionInput{
		Notes:     notes,
		Artifacts: set,
	})
	if err != nil {
		h.artifacts.Cleanup(c.Request.Context(), stored)
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"manuscript": services.ProjectManuscript(actor, res.Manuscript, false),
		"revision":   res.Revision,
		"transition": res.Transition,
	})
}

type overrideRequest struct {
	Stage string `json:"stage" binding:"required"`
	Notes string `json:"notes"`
}

// OverrideStage - POST /api/v1/manuscripts/:id/stage
func (h *Handler) OverrideStage(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	stage, err := utils.ParseStage(req.Stage)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	actor := actorOf(c)
	res, err := h.journal.Workflow.OverrideStage(c.Request.Context(), actor, id, stage, utils.SanitizeInput(req.Notes))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"manuscript": services.ProjectManuscript(actor, res.Manuscript, false),
		"transition": res.Transition,
	})
}

// PublishManuscript - POST /api/v1/manuscripts/:id/publish
func (h *Handler) PublishManuscript(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor := actorOf(c)
	res, err := h.journal.Workflow.Publish(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"manuscript": services.ProjectManuscript(actor, res.Manuscript, false),
		"article":    res.Article,
		"transition": res.Transition,
	})
}
