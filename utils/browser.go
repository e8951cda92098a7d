package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"pdp-variant-extractor/internal/types"
)

// ChromeSurface is a RenderSurface backed by a single chromedp tab.
// The tab lives for the whole run and is released by Close.
type ChromeSurface struct {
	config *types.Config
	logger types.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

// NewChromeSurface launches a browser and opens the tab that every call drives
func NewChromeSurface(ctx context.Context, config *types.Config, logger types.Logger) (*ChromeSurface, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(config.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	// Route chromedp's own noise to debug level
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(logger.Debugf))

	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debugf("Browser session started (headless: %v)", config.Headless)

	return &ChromeSurface{
		config:      config,
		logger:      logger,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// scope derives an operation context from the tab that also ends when ctx does
func (c *ChromeSurface) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(c.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// Load navigates to url and waits for the document body
func (c *ChromeSurface) Load(ctx context.Context, url string) error {
	opCtx, done := c.scope(ctx, c.config.PageLoadTimeout)
	defer done()

	err := chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	c.logger.Debugf("Loaded %s", url)
	return nil
}

// Find returns the first element matching selector without waiting
func (c *ChromeSurface) Find(ctx context.Context, selector string) (types.Element, error) {
	nodes, err := c.query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", selector, types.ErrElementNotFound)
	}
	return nodes[0], nil
}

// FindAll returns every element matching selector without waiting
func (c *ChromeSurface) FindAll(ctx context.Context, selector string) ([]types.Element, error) {
	nodes, err := c.query(ctx, selector)
	if err != nil {
		return nil, err
	}

	elements := make([]types.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, n)
	}
	return elements, nil
}

// FindWithin returns the first descendant of parent matching selector
func (c *ChromeSurface) FindWithin(ctx context.Context, parent types.Element, selector string) (types.Element, error) {
	node, err := asNode(parent)
	if err != nil {
		return nil, err
	}

	nodes, err := c.query(ctx, selector, chromedp.FromNode(node))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", selector, types.ErrElementNotFound)
	}
	return nodes[0], nil
}

func (c *ChromeSurface) query(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]*cdp.Node, error) {
	opCtx, done := c.scope(ctx, c.config.Timeout)
	defer done()

	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return nodes, nil
}

// WaitForPresence blocks until selector matches an attached element
func (c *ChromeSurface) WaitForPresence(ctx context.Context, selector string, timeout time.Duration) (types.Element, error) {
	return c.waitFor(ctx, selector, timeout, chromedp.NodeReady)
}

// WaitForVisible blocks until selector matches a visible element
func (c *ChromeSurface) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (types.Element, error) {
	return c.waitFor(ctx, selector, timeout, chromedp.NodeVisible)
}

func (c *ChromeSurface) waitFor(ctx context.Context, selector string, timeout time.Duration, cond chromedp.QueryOption) (types.Element, error) {
	opCtx, done := c.scope(ctx, timeout)
	defer done()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, cond)); err != nil {
		return nil, fmt.Errorf("timed out waiting for %s: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", selector, types.ErrElementNotFound)
	}
	return nodes[0], nil
}

func (c *ChromeSurface) ScrollIntoView(ctx context.Context, el types.Element) error {
	return c.ExecuteScript(ctx, el, `function() { this.scrollIntoView({block: 'center'}); }`, nil)
}

// Click dispatches a real mouse click at the element's center
func (c *ChromeSurface) Click(ctx context.Context, el types.Element) error {
	node, err := asNode(el)
	if err != nil {
		return err
	}

	opCtx, done := c.scope(ctx, c.config.Timeout)
	defer done()

	if err := chromedp.Run(opCtx, chromedp.MouseClickNode(node)); err != nil {
		return fmt.Errorf("failed to click node: %w", err)
	}
	return nil
}

// ForceClick dispatches a click from script, bypassing hit-testing
func (c *ChromeSurface) ForceClick(ctx context.Context, el types.Element) error {
	return c.ExecuteScript(ctx, el, `function() { this.click(); }`, nil)
}

// ReadAttribute returns the attribute value and whether it is present
func (c *ChromeSurface) ReadAttribute(ctx context.Context, el types.Element, name string) (string, bool, error) {
	var value *string
	if err := c.callOn(ctx, el, readAttributeFunc, &value, name); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (c *ChromeSurface) ReadText(ctx context.Context, el types.Element) (string, error) {
	var text string
	if err := c.callOn(ctx, el, readTextFunc, &text); err != nil {
		return "", err
	}
	return text, nil
}

// ExecuteScript calls fn with this bound to el, or to the window when el is nil
func (c *ChromeSurface) ExecuteScript(ctx context.Context, el types.Element, fn string, out interface{}) error {
	if el == nil {
		opCtx, done := c.scope(ctx, c.config.Timeout)
		defer done()

		var discard interface{}
		if out == nil {
			out = &discard
		}
		expr := fmt.Sprintf(`(() => { const r = (%s).call(window); return r === undefined ? null : r; })()`, fn)
		if err := chromedp.Run(opCtx, chromedp.Evaluate(expr, out)); err != nil {
			return fmt.Errorf("failed to execute script: %w", err)
		}
		return nil
	}

	return c.callOn(ctx, el, fn, out)
}

func (c *ChromeSurface) callOn(ctx context.Context, el types.Element, fn string, out interface{}, args ...interface{}) error {
	node, err := asNode(el)
	if err != nil {
		return err
	}

	opCtx, done := c.scope(ctx, c.config.Timeout)
	defer done()

	var discard interface{}
	if out == nil {
		out = &discard
	}
	wrapped := fmt.Sprintf(`function(...a) { const r = (%s).apply(this, a); return r === undefined ? null : r; }`, fn)
	err = chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve node: %w", err)
		}
		// Releasing fails once the page navigates away; nothing to do then
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(wrapped, out, onObject(obj.ObjectID), args...).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to call function on node: %w", err)
	}
	return nil
}

// onObject binds a CallFunctionOn to the given remote object as this
func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

// ReadGlobalState evaluates expression in the page and returns its JSON value
func (c *ChromeSurface) ReadGlobalState(ctx context.Context, expression string) ([]byte, error) {
	opCtx, done := c.scope(ctx, c.config.Timeout)
	defer done()

	var raw []byte
	if err := chromedp.Run(opCtx, chromedp.Evaluate(expression, &raw)); err != nil {
		return nil, fmt.Errorf("failed to read page state: %w", err)
	}
	return raw, nil
}

func (c *ChromeSurface) Title(ctx context.Context) (string, error) {
	opCtx, done := c.scope(ctx, c.config.Timeout)
	defer done()

	var title string
	if err := chromedp.Run(opCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

// Close releases the tab and the browser process. It is safe to call more than once.
func (c *ChromeSurface) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.allocCancel()
		c.logger.Debug("Browser session closed")
	})
	return nil
}

func asNode(el types.Element) (*cdp.Node, error) {
	node, ok := el.(*cdp.Node)
	if !ok || node == nil {
		return nil, fmt.Errorf("unexpected element handle %T: %w", el, types.ErrElementNotFound)
	}
	return node, nil
}
