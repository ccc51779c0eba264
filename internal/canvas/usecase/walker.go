package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"

	domain "canvas-mirror-backend/internal/canvas/domain"
	"canvas-mirror-backend/internal/canvas/repository"
	"canvas-mirror-backend/pkg/canvasapi"
)

// moduleItemTypeFile is the Canvas module item kind that references a file.
const moduleItemTypeFile = "File"

// WalkStats aggregates per-item outcomes into job counters. Processed
// counts newly ingested payloads; Skipped counts known hashes, non-file
// items and per-item failures; Errors counts the failures alone.
type WalkStats struct {
	Processed int
	Skipped   int
	Errors    int
}

func (s *WalkStats) Add(other WalkStats) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Errors += other.Errors
}

type itemOutcome int

const (
	outcomeProcessed itemOutcome = iota
	outcomeSkipped
)

// Walker runs the three resource walks for one course. Shared contract:
// enumerate items, hash payload bytes, consult the dedup store, then
// insert + dispatch or skip. A failing item is tallied and walked past —
// it never aborts the walk or the job.
type Walker struct {
	api                  *canvasapi.Client
	docRepo              repository.DocumentRepository
	dispatcher           Dispatcher
	includeTopLevelFiles bool
	includePages         bool
}

func NewWalker(api *canvasapi.Client, docRepo repository.DocumentRepository, dispatcher Dispatcher, includeTopLevelFiles, includePages bool) *Walker {
	return &Walker{
		api:                  api,
		docRepo:              docRepo,
		dispatcher:           dispatcher,
		includeTopLevelFiles: includeTopLevelFiles,
		includePages:         includePages,
	}
}

// WalkCourse runs every enabled walker against one course, sequentially.
func (w *Walker) WalkCourse(ctx context.Context, creds canvasapi.Credentials, courseID string) WalkStats {
	stats := w.walkModuleItems(ctx, creds, courseID)

	if w.includeTopLevelFiles {
		stats.Add(w.walkCourseFiles(ctx, creds, courseID))
	}
	if w.includePages {
		stats.Add(w.walkPages(ctx, creds, courseID))
	}

	return stats
}

// walkModuleItems is the module-item-file walker: every "File"-kind item
// in every module of the course.
func (w *Walker) walkModuleItems(ctx context.Context, creds canvasapi.Credentials, courseID string) WalkStats {
	var stats WalkStats

	for _, module := range w.api.ListModules(ctx, creds, courseID) {
		for _, item := range w.api.ListModuleItems(ctx, creds, courseID, module.ID) {
			if item.Type != moduleItemTypeFile {
				stats.Skipped++
				continue
			}
			outcome, err := w.ingestFileItem(ctx, creds, courseID, module.ID, item)
			w.tally(&stats, outcome, err, fmt.Sprintf("module item %d", item.ID))
		}
	}

	return stats
}

// walkCourseFiles is the top-level-file walker: the course's flat file
// list, catching files not linked into any module.
func (w *Walker) walkCourseFiles(ctx context.Context, creds canvasapi.Credentials, courseID string) WalkStats {
	var stats WalkStats

	for _, file := range w.api.ListCourseFiles(ctx, creds, courseID) {
		outcome, err := w.ingestFile(ctx, creds, courseID, nil, nil, file)
		w.tally(&stats, outcome, err, fmt.Sprintf("course file %d", file.ID))
	}

	return stats
}

// walkPages is the page walker: wiki pages with the HTML body as the
// payload, dispatched as an inline data reference.
func (w *Walker) walkPages(ctx context.Context, creds canvasapi.Credentials, courseID string) WalkStats {
	var stats WalkStats

	for _, ref := range w.api.ListPages(ctx, creds, courseID) {
		outcome, err := w.ingestPage(ctx, creds, courseID, ref)
		w.tally(&stats, outcome, err, fmt.Sprintf("page %s", ref.URL))
	}

	return stats
}

func (w *Walker) tally(stats *WalkStats, outcome itemOutcome, err error, what string) {
	if err != nil {
		// One bad item must never abort the walk
		log.Printf("[Walker] Skipping %s: %v", what, err)
		stats.Skipped++
		stats.Errors++
		return
	}
	if outcome == outcomeProcessed {
		stats.Processed++
	} else {
		stats.Skipped++
	}
}

func (w *Walker) ingestFileItem(ctx context.Context, creds canvasapi.Credentials, courseID string, moduleID int64, item canvasapi.ModuleItem) (itemOutcome, error) {
	file, err := w.api.GetFile(ctx, creds, courseID, item.ContentID)
	if err != nil {
		return outcomeSkipped, err
	}

	moduleIDStr := strconv.FormatInt(moduleID, 10)
	itemIDStr := strconv.FormatInt(item.ID, 10)
	return w.ingestFile(ctx, creds, courseID, &moduleIDStr, &itemIDStr, *file)
}

// ingestFile downloads, hashes, dedup-checks and dispatches one file.
func (w *Walker) ingestFile(ctx context.Context, creds canvasapi.Credentials, courseID string, moduleID, moduleItemID *string, file canvasapi.File) (itemOutcome, error) {
	data, err := w.api.Download(ctx, creds, file.URL)
	if err != nil {
		return outcomeSkipped, err
	}

	hash := contentHash(data)
	attachmentID := strconv.FormatInt(file.ID, 10)
	size := int64(len(data))

	doc := &domain.IngestedDocument{
		ContentHash:  hash,
		DocID:        docID("file", courseID, attachmentID, hash),
		CourseID:     courseID,
		ModuleID:     moduleID,
		ModuleItemID: moduleItemID,
		AttachmentID: &attachmentID,
		Title:        file.DisplayName,
		SizeBytes:    &size,
	}
	if file.ContentType != "" {
		doc.MimeType = &file.ContentType
	}

	already, err := w.docRepo.EnsureIngested(doc)
	if err != nil {
		return outcomeSkipped, err
	}
	if already {
		return outcomeSkipped, nil
	}

	err = w.dispatcher.Dispatch(ctx, DispatchRequest{
		PayloadURL:  file.URL,
		Filename:    file.DisplayName,
		DocID:       doc.DocID,
		BearerToken: creds.AccessToken,
		Context: map[string]string{
			"course_id": courseID,
			"source":    "canvas",
		},
	})
	if err != nil {
		return outcomeSkipped, err
	}

	return outcomeProcessed, nil
}

func (w *Walker) ingestPage(ctx context.Context, creds canvasapi.Credentials, courseID string, ref canvasapi.PageRef) (itemOutcome, error) {
	page, err := w.api.GetPage(ctx, creds, courseID, ref.URL)
	if err != nil {
		return outcomeSkipped, err
	}

	body := []byte(page.Body)
	hash := contentHash(body)
	size := int64(len(body))
	mime := "text/html"

	doc := &domain.IngestedDocument{
		ContentHash: hash,
		DocID:       docID("page", courseID, ref.URL, hash),
		CourseID:    courseID,
		Title:       page.Title,
		MimeType:    &mime,
		SizeBytes:   &size,
	}

	already, err := w.docRepo.EnsureIngested(doc)
	if err != nil {
		return outcomeSkipped, err
	}
	if already {
		return outcomeSkipped, nil
	}

	err = w.dispatcher.Dispatch(ctx, DispatchRequest{
		InlineData: body,
		Filename:   ref.URL + ".html",
		DocID:      doc.DocID,
		Context: map[string]string{
			"course_id": courseID,
			"source":    "canvas",
		},
	})
	if err != nil {
		return outcomeSkipped, err
	}

	return outcomeProcessed, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// docID is deterministic so re-runs produce the same id for the same
// payload, independent of the hash-table lookup.
func docID(kind, courseID, scopeID, hash string) string {
	return fmt.Sprintf("canvas-%s-%s-%s-%s", kind, courseID, scopeID, hash[:12])
}
