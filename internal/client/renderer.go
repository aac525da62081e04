package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"taobao/crawler/internal/config"
	"taobao/crawler/internal/proxy"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// Renderer loads a page in a real browser and returns the rendered DOM
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*goquery.Document, error)
}

const (
	StageLaunch   = "launch"
	StageNavigate = "navigate"
	StageContent  = "content"
)

// RenderError tags a browser failure with the step that produced it
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// browserSession is one launched browser with a single tab
type browserSession interface {
	Prepare(width, height int, userAgent string) error
	Load(ctx context.Context, pageURL string, navigationTimeout, settleDelay time.Duration) (string, error)
	Close()
}

type launchFunc func(cfg config.BrowserConfig, proxyURL string) (browserSession, error)

type browserRenderer struct {
	cfg               config.BrowserConfig
	proxySupplier     proxy.ProxySupplier
	navigationTimeout time.Duration
	settleDelay       time.Duration
	launch            launchFunc
}

func NewBrowserRenderer(
	cfg config.BrowserConfig,
	proxySupplier proxy.ProxySupplier,
	navigationTimeout time.Duration,
	settleDelay time.Duration,
) Renderer {
	return &browserRenderer{
		cfg:               cfg,
		proxySupplier:     proxySupplier,
		navigationTimeout: navigationTimeout,
		settleDelay:       settleDelay,
		launch:            launchRod,
	}
}

// Render launches a dedicated browser for this page and closes it exactly
// once before returning, whatever the outcome.
func (r *browserRenderer) Render(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var proxyURL string
	if r.proxySupplier != nil {
		proxyURL = r.proxySupplier.Get()
	}

	session, err := r.launch(r.cfg, proxyURL)
	if err != nil {
		return nil, &RenderError{Stage: StageLaunch, Err: err}
	}
	defer session.Close()

	if err := session.Prepare(r.cfg.ViewportWidth, r.cfg.ViewportHeight, r.cfg.UserAgent); err != nil {
		return nil, &RenderError{Stage: StageLaunch, Err: err}
	}

	html, err := session.Load(ctx, pageURL, r.navigationTimeout, r.settleDelay)
	if err != nil {
		return nil, err
	}

	return parseDocument(pageURL, html)
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func launchRod(cfg config.BrowserConfig, proxyURL string) (browserSession, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if proxyURL != "" {
		log.Debugf("🌐 Launching browser via proxy %s", proxyURL)
		l = l.Proxy(proxyURL)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &rodSession{launcher: l, browser: browser}, nil
}

func (s *rodSession) Prepare(width, height int, userAgent string) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}

	if userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	return nil
}

func (s *rodSession) Load(ctx context.Context, pageURL string, navigationTimeout, settleDelay time.Duration) (string, error) {
	p := s.page.Context(ctx).Timeout(navigationTimeout)

	// Registered before Navigate so the event is not missed
	waitLoaded := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(pageURL); err != nil {
		return "", &RenderError{Stage: StageNavigate, Err: err}
	}
	waitLoaded()
	if err := p.GetContext().Err(); err != nil {
		return "", &RenderError{Stage: StageNavigate, Err: fmt.Errorf("page did not load within %s: %w", navigationTimeout, err)}
	}
	p = p.CancelTimeout()

	// Let client-side scripts fill in lazy content
	if settleDelay > 0 {
		select {
		case <-ctx.Done():
			return "", &RenderError{Stage: StageNavigate, Err: ctx.Err()}
		case <-time.After(settleDelay):
		}
	}

	html, err := p.HTML()
	if err != nil {
		return "", &RenderError{Stage: StageContent, Err: err}
	}
	return html, nil
}

func (s *rodSession) Close() {
	if err := s.browser.Close(); err != nil {
		log.Warnf("⚠️ Failed to close browser, killing process: %v", err)
		s.launcher.Kill()
	}
	s.launcher.Cleanup()
}

func parseDocument(pageURL, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &RenderError{Stage: StageContent, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}

	if u, err := url.Parse(pageURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}
