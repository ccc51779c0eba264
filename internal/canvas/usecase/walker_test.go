package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain "canvas-mirror-backend/internal/canvas/domain"
	"canvas-mirror-backend/internal/canvas/repository"
	"canvas-mirror-backend/internal/canvas/usecase"
	"canvas-mirror-backend/pkg/canvasapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []usecase.DispatchRequest
	failFor map[string]bool
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req usecase.DispatchRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, req)
	if d.failFor[req.Filename] {
		return fmt.Errorf("extraction failed for %s", req.Filename)
	}
	return nil
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func newDocRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.IngestedDocument{}))
	return repository.NewDocumentRepository(db)
}

func countDocs(t *testing.T, repo repository.DocumentRepository) int {
	t.Helper()
	docs, err := repo.List("", 200)
	require.NoError(t, err)
	return len(docs)
}

// freshCourseServer models course 1 with two modules: module 1 has one
// file item, module 2 has one non-file item.
func freshCourseServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/modules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"Module A"},{"id":2,"name":"Module B"}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/modules/1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":11,"title":"Lecture Notes","type":"File","content_id":10}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/modules/2/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":21,"title":"Welcome","type":"Page","content_id":0}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/files/10", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":10,"display_name":"notes.pdf","content-type":"application/pdf","size":10,"url":"%s/dl/10"}`, server.URL)
	})
	mux.HandleFunc("/dl/10", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("H1 content"))
	})
	server = httptest.NewServer(mux)
	return server
}

func TestWalkFreshCourse(t *testing.T) {
	server := freshCourseServer(t)
	defer server.Close()

	docRepo := newDocRepo(t)
	dispatcher := &fakeDispatcher{}
	walker := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, dispatcher, false, false)

	creds := canvasapi.Credentials{AccessToken: "tok", BaseURL: server.URL}
	stats := walker.WalkCourse(context.Background(), creds, "1")

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped) // the non-file item
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, dispatcher.callCount())

	docs, err := docRepo.List("1", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.pdf", docs[0].Title)
	assert.Contains(t, docs[0].DocID, "canvas-file-1-10-")
}

func TestWalkIdempotentRerun(t *testing.T) {
	server := freshCourseServer(t)
	defer server.Close()

	docRepo := newDocRepo(t)
	dispatcher := &fakeDispatcher{}
	walker := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, dispatcher, false, false)

	creds := canvasapi.Credentials{AccessToken: "tok", BaseURL: server.URL}
	first := walker.WalkCourse(context.Background(), creds, "1")
	require.Equal(t, 1, first.Processed)

	second := walker.WalkCourse(context.Background(), creds, "1")

	// every item resolves to an already-known hash on the second run
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Errors)
	assert.Equal(t, 1, countDocs(t, docRepo))
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestWalkCrossLocationDedup(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/modules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"Module A"},{"id":2,"name":"Module B"}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/modules/1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":11,"title":"Copy One","type":"File","content_id":10}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/modules/2/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":21,"title":"Copy Two","type":"File","content_id":20}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/files/10", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":10,"display_name":"shared.pdf","url":"%s/dl/same"}`, server.URL)
	})
	mux.HandleFunc("/api/v1/courses/1/files/20", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":20,"display_name":"shared-copy.pdf","url":"%s/dl/same"}`, server.URL)
	})
	mux.HandleFunc("/dl/same", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("identical bytes"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	docRepo := newDocRepo(t)
	dispatcher := &fakeDispatcher{}
	walker := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, dispatcher, false, false)

	creds := canvasapi.Credentials{AccessToken: "tok", BaseURL: server.URL}
	stats := walker.WalkCourse(context.Background(), creds, "1")

	// byte-identical payloads reachable from two module items: one row,
	// one dispatch, the second occurrence skipped
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, countDocs(t, docRepo))
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestWalkPartialFailureIsolation(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/modules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"Module A"}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/modules/1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":11,"title":"Good One","type":"File","content_id":10},
			{"id":12,"title":"Broken","type":"File","content_id":20},
			{"id":13,"title":"Good Two","type":"File","content_id":30}
		]`)
	})
	mux.HandleFunc("/api/v1/courses/1/files/10", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":10,"display_name":"a.pdf","url":"%s/dl/10"}`, server.URL)
	})
	mux.HandleFunc("/api/v1/courses/1/files/20", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":20,"display_name":"b.pdf","url":"%s/dl/20"}`, server.URL)
	})
	mux.HandleFunc("/api/v1/courses/1/files/30", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":30,"display_name":"c.pdf","url":"%s/dl/30"}`, server.URL)
	})
	mux.HandleFunc("/dl/10", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload a"))
	})
	mux.HandleFunc("/dl/20", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/dl/30", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload c"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	docRepo := newDocRepo(t)
	dispatcher := &fakeDispatcher{}
	walker := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, dispatcher, false, false)

	creds := canvasapi.Credentials{AccessToken: "tok", BaseURL: server.URL}
	stats := walker.WalkCourse(context.Background(), creds, "1")

	// item 12's download failure is tallied and walked past
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 2, countDocs(t, docRepo))
}

func TestWalkPagesInlinePayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/modules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/api/v1/courses/1/pages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"url":"syllabus","title":"Syllabus"}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/pages/syllabus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url":"syllabus","title":"Syllabus","body":"<p>Welcome to the course</p>"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	docRepo := newDocRepo(t)
	dispatcher := &fakeDispatcher{}
	walker := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, dispatcher, false, true)

	creds := canvasapi.Credentials{AccessToken: "tok", BaseURL: server.URL}
	stats := walker.WalkCourse(context.Background(), creds, "1")

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Errors)

	require.Equal(t, 1, dispatcher.callCount())
	call := dispatcher.calls[0]
	assert.NotEmpty(t, call.InlineData)
	assert.Empty(t, call.PayloadURL)
	assert.Equal(t, "syllabus.html", call.Filename)

	docs, err := docRepo.List("1", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NotNil(t, docs[0].MimeType)
	assert.Equal(t, "text/html", *docs[0].MimeType)
}

func TestWalkTopLevelFilesBehindSwitch(t *testing.T) {
	var server *httptest.Server
	var filesListed bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/modules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/api/v1/courses/1/files", func(w http.ResponseWriter, r *http.Request) {
		filesListed = true
		fmt.Fprintf(w, `[{"id":40,"display_name":"orphan.pdf","url":"%s/dl/40"}]`, server.URL)
	})
	mux.HandleFunc("/dl/40", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("orphan bytes"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	docRepo := newDocRepo(t)
	creds := canvasapi.Credentials{AccessToken: "tok", BaseURL: server.URL}

	// switch off: the flat file list is never touched
	disabled := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, &fakeDispatcher{}, false, false)
	stats := disabled.WalkCourse(context.Background(), creds, "1")
	assert.Equal(t, 0, stats.Processed)
	assert.False(t, filesListed)

	// switch on: the orphan file is ingested
	enabled := usecase.NewWalker(canvasapi.NewClient(5*time.Second), docRepo, &fakeDispatcher{}, true, false)
	stats = enabled.WalkCourse(context.Background(), creds, "1")
	assert.Equal(t, 1, stats.Processed)
	assert.True(t, filesListed)
}
