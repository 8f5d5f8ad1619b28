package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "product-sets-integration/1.0"

// ErrHTMLResponse is returned when the feed URL answers with a web page
// (login screen, maintenance notice) instead of an XML document.
var ErrHTMLResponse = errors.New("feed endpoint returned an html page")

// StatusError reports a non-2xx response of the feed endpoint.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch xml: %s", e.Status)
}

// Client downloads raw feed documents.
type Client struct {
	HTTP *http.Client
}

// NewClient builds a feed client; timeout <= 0 disables the client timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Fetch returns the body of url. Transport failures and non-2xx statuses are
// returned as errors; the body is never partially returned.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.1")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") && looksLikeHTML(body) {
		return nil, htmlPageError(body)
	}

	return body, nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.TrimPrefix(bytes.TrimSpace(body), []byte("\xef\xbb\xbf"))
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.ToLower(head)
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func htmlPageError(body []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ErrHTMLResponse
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return ErrHTMLResponse
	}
	return fmt.Errorf("%w: %q", ErrHTMLResponse, title)
}
