package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"price-tracker-go/pkg/cli/client"
	"price-tracker-go/pkg/cli/tui"
	"price-tracker-go/pkg/config"
	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/scraper"
	"price-tracker-go/pkg/services"
	"price-tracker-go/pkg/session"

	tea "github.com/charmbracelet/bubbletea"
)

type App struct {
	cfg     *config.Config
	client  *client.Client
	session *session.Manager
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	out     io.Writer
	in      io.Reader
}

func NewApp(cfg *config.Config, sess *session.Manager, m *metrics.Metrics, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{
		cfg:     cfg,
		session: sess,
		metrics: m,
		log:     log,
		out:     os.Stdout,
		in:      os.Stdin,
	}
}

// getClient returns the HTTP client, creating it if necessary
func (a *App) getClient() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	if a.cfg.CLI.BaseURL == "" {
		return nil, fmt.Errorf("API base URL not configured")
	}

	a.client = client.NewClient(a.cfg.CLI.BaseURL, a.cfg.CLI.APIKey)
	return a.client, nil
}

func (a *App) newPoller(backend scraper.Backend, onUpdate func(scraper.Snapshot)) *scraper.Poller {
	return scraper.NewPoller(backend, scraper.Config{
		Interval:    a.cfg.PollInterval(),
		MaxAttempts: a.cfg.CLI.MaxPollAttempts,
		Logger:      a.log,
		Metrics:     a.metrics,
		OnUpdate:    onUpdate,
	})
}

func (a *App) newSender(backend services.CatalogBackend, onUpdate func(services.SendState, string)) *services.Sender {
	return services.NewSender(backend, services.SenderConfig{
		Logger:   a.log,
		Metrics:  a.metrics,
		OnUpdate: onUpdate,
	})
}

func (a *App) startOptions(force bool) scraper.StartOptions {
	return scraper.StartOptions{ForceRefresh: force, TimeoutSeconds: a.cfg.CLI.ScrapeTimeout}
}

// Run starts the interactive TUI. It needs an active session.
func (a *App) Run() error {
	if !a.session.Authenticated() {
		return fmt.Errorf("%w: run with --login <email> first", session.ErrNotLoggedIn)
	}
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	newPoller := func(onUpdate func(scraper.Snapshot)) *scraper.Poller {
		return a.newPoller(apiClient, onUpdate)
	}
	newSender := func(onUpdate func(services.SendState, string)) *services.Sender {
		return a.newSender(apiClient, onUpdate)
	}

	root := tui.NewRootModel(tui.Dependencies{
		Client:        apiClient,
		Session:       a.session,
		NewPoller:     newPoller,
		NewSender:     newSender,
		ScrapeOptions: a.startOptions,
	})
	_, err = tea.NewProgram(root, tea.WithAltScreen()).Run()
	return err
}
