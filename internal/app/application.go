package app

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/whitelist-dapp/internal/chain"
	"github.com/Rorical/whitelist-dapp/internal/config"
	"github.com/Rorical/whitelist-dapp/internal/core"
	"github.com/Rorical/whitelist-dapp/internal/dispatcher"
	"github.com/Rorical/whitelist-dapp/internal/eventbus"
	"github.com/Rorical/whitelist-dapp/internal/models"
	"github.com/Rorical/whitelist-dapp/internal/wallet"
)

// PasswordFunc returns the password for the keystore at path.
type PasswordFunc func(path string) (string, error)

// Application manages the complete application lifecycle
type Application struct {
	config     *config.Config
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.WhitelistService
	model      *AppModel
	logFile    io.Closer
}

type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
}

func NewApplication(password PasswordFunc) (*Application, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// The terminal belongs to bubbletea, so logs go to a file.
	logger, logFile := openLog()

	bridge, err := NewBridge(cfg, password)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}

	// Create event bus
	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn("event bus", "op", e.Operation, "err", e.Err)
	})

	// Create dispatcher
	disp := dispatcher.NewEventDispatcher(eb)

	// The service is created even for an unconfigured profile and explains
	// what is missing.
	service := core.NewWhitelistService(cfg, bridge, eb, logger)

	// Create app model
	model := &AppModel{
		appModel:   createInitialAppModel(),
		dispatcher: disp,
	}

	app := &Application{
		config:     cfg,
		eventBus:   eb,
		dispatcher: disp,
		service:    service,
		model:      model,
	}
	if logFile != nil {
		app.logFile = logFile
	}
	return app, nil
}

// NewBridge builds the wallet bridge for the active profile, or returns nil
// when the profile is not configured yet.
func NewBridge(cfg *config.Config, password PasswordFunc) (wallet.Bridge, error) {
	if !cfg.IsValid() {
		return nil, nil
	}
	p := cfg.Current()

	var (
		account *chain.Account
		err     error
	)
	if p.PrivateKey != "" {
		account, err = chain.ParsePrivateKey(p.PrivateKey)
	} else {
		if password == nil {
			return nil, fmt.Errorf("keystore %s needs a password", p.KeystorePath)
		}
		var pw string
		pw, err = password(p.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("read keystore password: %w", err)
		}
		account, err = chain.LoadKeystore(p.KeystorePath, pw)
	}
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", cfg.ActiveProfile, err)
	}
	return wallet.NewKeyBridge(account, p.RPCURL), nil
}

func openLog() (*slog.Logger, *os.File) {
	dir, err := config.Dir()
	if err == nil {
		var f *os.File
		f, err = tea.LogToFile(filepath.Join(dir, "debug.log"), "whitelist")
		if err == nil {
			return slog.New(slog.NewTextHandler(f, nil)), f
		}
	}
	log.SetOutput(io.Discard)
	return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
}

func (app *Application) Start() error {
	app.service.Start()

	// Run UI
	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	app.dispatcher.Stop()
	app.service.Stop()
	app.eventBus.Close()
	if app.logFile != nil {
		app.logFile.Close()
	}
}

func createInitialAppModel() models.AppModel {
	// No initial messages in UI - they come from core as single source of truth
	return models.AppModel{
		Activity: make([]models.Message, 0),
		Status:   "Ready",
	}
}
