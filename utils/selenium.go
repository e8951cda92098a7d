package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"pdp-variant-extractor/internal/types"
)

// SeleniumSurface is a RenderSurface backed by a chromedriver WebDriver session
type SeleniumSurface struct {
	config *types.Config
	logger types.Logger

	service   *selenium.Service
	driver    selenium.WebDriver
	closeOnce sync.Once
}

// NewSeleniumSurface starts chromedriver and opens a WebDriver session
func NewSeleniumSurface(config *types.Config, logger types.Logger) (*SeleniumSurface, error) {
	service, err := selenium.NewChromeDriverService(config.ChromeDriverPath, config.SeleniumPort)
	if err != nil {
		return nil, fmt.Errorf("error starting Chrome driver service: %w", err)
	}

	args := []string{
		"--no-sandbox",
		"--disable-gpu",
		"--disable-dev-shm-usage",
		"--window-size=1920,1080",
		fmt.Sprintf("--user-agent=%s", config.UserAgent),
	}
	if config.Headless {
		args = append(args, "--headless=new")
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: args})

	driver, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", config.SeleniumPort))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("error creating WebDriver: %w", err)
	}

	if err := driver.SetPageLoadTimeout(config.PageLoadTimeout); err != nil {
		logger.Warnf("Failed to set page load timeout: %v", err)
	}

	logger.Debugf("WebDriver session started on port %d", config.SeleniumPort)

	return &SeleniumSurface{
		config:  config,
		logger:  logger,
		service: service,
		driver:  driver,
	}, nil
}

func (s *SeleniumSurface) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.driver.Get(url); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	_, err := s.WaitForPresence(ctx, "body", s.config.PageLoadTimeout)
	return err
}

func (s *SeleniumSurface) Find(ctx context.Context, selector string) (types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := s.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, types.ErrElementNotFound)
	}
	return el, nil
}

func (s *SeleniumSurface) FindAll(ctx context.Context, selector string) ([]types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := s.driver.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}

	elements := make([]types.Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, el)
	}
	return elements, nil
}

func (s *SeleniumSurface) FindWithin(ctx context.Context, parent types.Element, selector string) (types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := asWebElement(parent)
	if err != nil {
		return nil, err
	}
	el, err := p.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, types.ErrElementNotFound)
	}
	return el, nil
}

func (s *SeleniumSurface) WaitForPresence(ctx context.Context, selector string, timeout time.Duration) (types.Element, error) {
	return s.waitFor(ctx, selector, timeout, false)
}

func (s *SeleniumSurface) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (types.Element, error) {
	return s.waitFor(ctx, selector, timeout, true)
}

func (s *SeleniumSurface) waitFor(ctx context.Context, selector string, timeout time.Duration, visible bool) (types.Element, error) {
	var found selenium.WebElement
	cond := func(wd selenium.WebDriver) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		el, err := wd.FindElement(selenium.ByCSSSelector, selector)
		if err != nil {
			return false, nil
		}
		if visible {
			shown, err := el.IsDisplayed()
			if err != nil || !shown {
				return false, nil
			}
		}
		found = el
		return true, nil
	}

	if err := s.driver.WaitWithTimeoutAndInterval(cond, timeout, s.config.PollInterval); err != nil {
		return nil, fmt.Errorf("timed out waiting for %s: %w", selector, err)
	}
	return found, nil
}

func (s *SeleniumSurface) ScrollIntoView(ctx context.Context, el types.Element) error {
	return s.ExecuteScript(ctx, el, `function() { this.scrollIntoView({block: 'center'}); }`, nil)
}

func (s *SeleniumSurface) Click(ctx context.Context, el types.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	we, err := asWebElement(el)
	if err != nil {
		return err
	}
	if err := we.Click(); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}

func (s *SeleniumSurface) ForceClick(ctx context.Context, el types.Element) error {
	return s.ExecuteScript(ctx, el, `function() { this.click(); }`, nil)
}

func (s *SeleniumSurface) ReadAttribute(ctx context.Context, el types.Element, name string) (string, bool, error) {
	var value *string
	if err := s.call(ctx, el, readAttributeFunc, &value, name); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (s *SeleniumSurface) ReadText(ctx context.Context, el types.Element) (string, error) {
	var text string
	if err := s.call(ctx, el, readTextFunc, &text); err != nil {
		return "", err
	}
	return text, nil
}

// ExecuteScript calls fn with this bound to el, or to the window when el is nil
func (s *SeleniumSurface) ExecuteScript(ctx context.Context, el types.Element, fn string, out interface{}) error {
	return s.call(ctx, el, fn, out)
}

func (s *SeleniumSurface) call(ctx context.Context, el types.Element, fn string, out interface{}, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var target interface{}
	if el != nil {
		we, err := asWebElement(el)
		if err != nil {
			return err
		}
		target = we
	}

	script := fmt.Sprintf(`const r = (%s).apply(arguments[0] || window, Array.prototype.slice.call(arguments, 1));
return r === undefined ? null : r;`, fn)
	result, err := s.driver.ExecuteScript(script, append([]interface{}{target}, args...))
	if err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

// ReadGlobalState serializes expression in the page so object key order survives
func (s *SeleniumSurface) ReadGlobalState(ctx context.Context, expression string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.driver.ExecuteScript(fmt.Sprintf("return JSON.stringify(%s);", expression), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read page state: %w", err)
	}
	text, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected page state type %T", result)
	}
	return []byte(text), nil
}

func (s *SeleniumSurface) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.driver.Title()
}

// Close quits the session and stops chromedriver. It is safe to call more than once.
func (s *SeleniumSurface) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = errors.Join(s.driver.Quit(), s.service.Stop())
		s.logger.Debug("WebDriver session closed")
	})
	return err
}

func asWebElement(el types.Element) (selenium.WebElement, error) {
	we, ok := el.(selenium.WebElement)
	if !ok || we == nil {
		return nil, fmt.Errorf("unexpected element handle %T: %w", el, types.ErrElementNotFound)
	}
	return we, nil
}
