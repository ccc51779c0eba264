package canvasapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Credentials carries the per-user access values resolved from the
// credential store. The token is held in memory only.
type Credentials struct {
	AccessToken string
	BaseURL     string
}

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type Term struct {
	Name string `json:"name"`
}

type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Term *Term  `json:"term,omitempty"`
}

type Module struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ModuleItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	ContentID int64  `json:"content_id"`
}

type File struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	ContentType string `json:"content-type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

type PageRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// fetchAllPages follows the Canvas Link header (rel="next") until it is
// absent and returns the raw body of every page fetched. A non-2xx
// response or a transport error stops the walk and returns the pages
// collected so far, so upstream flakiness degrades to partial results
// instead of aborting the caller.
func (c *Client) fetchAllPages(ctx context.Context, creds Credentials, startURL string) [][]byte {
	var pages [][]byte
	next := startURL

	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			log.Printf("[CanvasAPI] Bad request URL %s: %v", next, err)
			return pages
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("[CanvasAPI] Fetch failed for %s: %v", next, err)
			return pages
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.Printf("[CanvasAPI] Non-2xx response %d for %s, returning partial results", resp.StatusCode, next)
			return pages
		}
		if readErr != nil {
			log.Printf("[CanvasAPI] Read failed for %s: %v", next, readErr)
			return pages
		}

		pages = append(pages, body)
		next = nextLink(resp.Header.Get("Link"))
	}

	return pages
}

// nextLink extracts the rel="next" URL from an RFC 5988 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if !strings.Contains(section[1], `rel="next"`) {
			continue
		}
		link := strings.TrimSpace(section[0])
		return strings.Trim(link, "<>")
	}
	return ""
}

// decodeCoursePages unmarshals each page (a JSON array) and flattens the result.
func decodeCoursePages(pages [][]byte) []Course {
	var out []Course
	for _, page := range pages {
		var batch []Course
		if err := json.Unmarshal(page, &batch); err != nil {
			log.Printf("[CanvasAPI] Skipping undecodable course page: %v", err)
			continue
		}
		out = append(out, batch...)
	}
	return out
}

func (c *Client) ListCourses(ctx context.Context, creds Credentials) []Course {
	u := fmt.Sprintf("%s/api/v1/courses?per_page=100&include[]=term", strings.TrimRight(creds.BaseURL, "/"))
	return decodeCoursePages(c.fetchAllPages(ctx, creds, u))
}

func (c *Client) ListModules(ctx context.Context, creds Credentials, courseID string) []Module {
	u := fmt.Sprintf("%s/api/v1/courses/%s/modules?per_page=100", strings.TrimRight(creds.BaseURL, "/"), url.PathEscape(courseID))
	var out []Module
	for _, page := range c.fetchAllPages(ctx, creds, u) {
		var batch []Module
		if err := json.Unmarshal(page, &batch); err != nil {
			log.Printf("[CanvasAPI] Skipping undecodable module page: %v", err)
			continue
		}
		out = append(out, batch...)
	}
	return out
}

func (c *Client) ListModuleItems(ctx context.Context, creds Credentials, courseID string, moduleID int64) []ModuleItem {
	u := fmt.Sprintf("%s/api/v1/courses/%s/modules/%d/items?per_page=100", strings.TrimRight(creds.BaseURL, "/"), url.PathEscape(courseID), moduleID)
	var out []ModuleItem
	for _, page := range c.fetchAllPages(ctx, creds, u) {
		var batch []ModuleItem
		if err := json.Unmarshal(page, &batch); err != nil {
			log.Printf("[CanvasAPI] Skipping undecodable module item page: %v", err)
			continue
		}
		out = append(out, batch...)
	}
	return out
}

func (c *Client) ListCourseFiles(ctx context.Context, creds Credentials, courseID string) []File {
	u := fmt.Sprintf("%s/api/v1/courses/%s/files?per_page=100", strings.TrimRight(creds.BaseURL, "/"), url.PathEscape(courseID))
	var out []File
	for _, page := range c.fetchAllPages(ctx, creds, u) {
		var batch []File
		if err := json.Unmarshal(page, &batch); err != nil {
			log.Printf("[CanvasAPI] Skipping undecodable file page: %v", err)
			continue
		}
		out = append(out, batch...)
	}
	return out
}

func (c *Client) ListPages(ctx context.Context, creds Credentials, courseID string) []PageRef {
	u := fmt.Sprintf("%s/api/v1/courses/%s/pages?per_page=100", strings.TrimRight(creds.BaseURL, "/"), url.PathEscape(courseID))
	var out []PageRef
	for _, page := range c.fetchAllPages(ctx, creds, u) {
		var batch []PageRef
		if err := json.Unmarshal(page, &batch); err != nil {
			log.Printf("[CanvasAPI] Skipping undecodable page listing: %v", err)
			continue
		}
		out = append(out, batch...)
	}
	return out
}

// getJSON fetches a single resource; unlike fetchAllPages, a failure here
// is an error the caller tallies per item.
func (c *Client) getJSON(ctx context.Context, creds Credentials, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, u)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// GetFile resolves file metadata via the course-scoped endpoint, falling
// back to the global files endpoint when the course-scoped one fails.
func (c *Client) GetFile(ctx context.Context, creds Credentials, courseID string, fileID int64) (*File, error) {
	base := strings.TrimRight(creds.BaseURL, "/")

	var file File
	scoped := fmt.Sprintf("%s/api/v1/courses/%s/files/%d", base, url.PathEscape(courseID), fileID)
	if err := c.getJSON(ctx, creds, scoped, &file); err == nil {
		return &file, nil
	}

	global := fmt.Sprintf("%s/api/v1/files/%d", base, fileID)
	if err := c.getJSON(ctx, creds, global, &file); err != nil {
		return nil, fmt.Errorf("failed to resolve file %d: %w", fileID, err)
	}
	return &file, nil
}

// GetPage fetches one wiki page including its HTML body.
func (c *Client) GetPage(ctx context.Context, creds Credentials, courseID, pageURL string) (*Page, error) {
	u := fmt.Sprintf("%s/api/v1/courses/%s/pages/%s", strings.TrimRight(creds.BaseURL, "/"), url.PathEscape(courseID), url.PathEscape(pageURL))
	var page Page
	if err := c.getJSON(ctx, creds, u, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Download fetches the raw bytes of a file from its download URL.
func (c *Client) Download(ctx context.Context, creds Credentials, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, fileURL)
	}

	return io.ReadAll(resp.Body)
}
