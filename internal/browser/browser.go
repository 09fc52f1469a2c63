// Package browser defines the browsing capability the crawler drives and
// provides two engines for it: a headless Chromium controlled through go-rod
// and a JavaScript-free HTTP engine built on resty and goquery.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrElementNotFound is returned when an interaction or wait targets a
	// selector that matches nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrClosed is returned by every operation on a released page.
	ErrClosed = errors.New("page closed")
	// ErrNoDocument is returned when a page is queried before any navigation.
	ErrNoDocument = errors.New("no document loaded")
	// ErrNoHistory is returned by GoBack on the first page of a session.
	ErrNoHistory = errors.New("no previous page in history")
	// ErrNotInteractive is returned when a fill or click targets an element
	// that cannot take input or trigger navigation.
	ErrNotInteractive = errors.New("element is not interactive")
)

// Scope evaluates CSS selectors against a document or a single element.
// A selector that matches nothing is reported through the boolean result,
// never as an error; errors mean the engine itself failed.
type Scope interface {
	// TextContent returns the rendered text of the first match.
	TextContent(ctx context.Context, selector string) (string, bool, error)
	// Attribute returns attribute name of the first match.
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	// QueryAll returns every match in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a handle to one node of the loaded page.
type Element interface {
	Scope
	// Text returns the rendered text of the element itself.
	Text(ctx context.Context) (string, error)
	// Attr returns one of the element's own attributes.
	Attr(ctx context.Context, name string) (string, bool, error)
}

// Page is a single browsing context. It is not safe for concurrent use:
// every step depends on the navigation state left by the previous one.
type Page interface {
	Scope
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	// WaitFor blocks until selector matches or ctx is done.
	WaitFor(ctx context.Context, selector string) error
	GoBack(ctx context.Context) error
	// URL returns the address of the loaded document, or "" before navigation.
	URL() string
	// Close releases the browsing context and any engine process behind it.
	// It is safe to call more than once.
	Close() error
}

// Launcher acquires a fresh browsing context. Callers own the returned Page
// and must Close it.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
	// Name identifies the engine in logs and health output.
	Name() string
}
