package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/account"
	"github.com/desertthunder/audx/internal/cart"
	"github.com/desertthunder/audx/internal/checkout"
	"github.com/desertthunder/audx/internal/forms"
	"github.com/desertthunder/audx/internal/library"
	"github.com/desertthunder/audx/internal/playback"
	"github.com/desertthunder/audx/internal/repositories"
	"github.com/desertthunder/audx/internal/services"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/desertthunder/audx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	store      services.Store
	catalog    services.Catalog
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	state     *repositories.StateRepository
	downloads *repositories.DownloadRepository
	positions *playback.PositionStore
	session   *session.State
	cart      *cart.State
	library   *library.Query
	accounts  *account.Service
	checkout  *checkout.Flow
	engine    *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store defaults to a client for API, which defaults to one built from Config. Without a DB the
// session and playback positions live in memory only.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Store      services.Store
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(
			opts.Config.API.BaseURL,
			&http.Client{Timeout: opts.Config.API.Timeout(), Transport: opts.HTTPClient.Transport},
			services.WithRateLimit(opts.Config.API.RateLimit),
			services.WithLogger(shared.WithLogger(opts.Logger, "component", "api")),
		)
	}
	if opts.Store == nil {
		opts.Store = services.NewStoreClient(opts.API)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		store:      opts.Store,
		catalog:    opts.Store,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.wire()
	return r
}

// wire builds the stateful components over the store and local database.
func (r *Runner) wire() {
	if cached, err := services.NewCachedCatalog(
		r.store,
		r.config.Catalog.CacheTTL(),
		r.config.Catalog.ItemCacheSize,
		shared.WithLogger(r.logger, "component", "catalog"),
	); err == nil {
		r.catalog = cached
	} else {
		r.logger.Warn("catalog cache disabled", "error", err)
	}

	var sessionStore session.Store
	kv := playback.KV(newMemoryKV())
	var recorder tasks.Recorder
	if r.db != nil {
		r.state = repositories.NewStateRepository(r.db)
		r.downloads = repositories.NewDownloadRepository(r.db)
		sessionStore, kv, recorder = r.state, r.state, r.downloads
	}

	validator := forms.New()
	r.positions = playback.NewPositionStore(kv)
	r.session = session.New(sessionStore, shared.WithLogger(r.logger, "component", "session"))
	r.library = library.New(r.store, r.session, shared.WithLogger(r.logger, "component", "library"))
	r.cart = cart.New(r.store, r.session, cart.Options{
		Ownership: r.library,
		Logger:    shared.WithLogger(r.logger, "component", "cart"),
	})
	r.accounts = account.New(r.store, r.session, validator, shared.WithLogger(r.logger, "component", "account"))
	r.checkout = checkout.New(r.store, r.store, r.cart, r.library, r.session, validator, shared.WithLogger(r.logger, "component", "checkout"))
	r.engine = tasks.NewEngine(r.httpClient, recorder, shared.WithLogger(r.logger, "component", "tasks"))
}

// SetLogger replaces the runner's logger and rebuilds the components so they log through it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.cart.Close()
	r.library.Close()
	r.logger = l
	r.wire()
}

// Close releases the local database.
func (r *Runner) Close() error {
	r.cart.Close()
	r.library.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, catalogCommand, authCommand, cartCommand, libraryCommand, cardsCommand,
		checkoutCommand, playCommand, cacheCommand, apiCommand, sandboxCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// transport builds a player with the configured defaults and the persistent position store.
func (r *Runner) transport() *playback.Transport {
	return playback.NewTransport(playback.Options{
		Positions:          r.positions,
		CheckpointInterval: r.config.Player.CheckpointInterval(),
		Volume:             r.config.Player.DefaultVolume,
		Rate:               r.config.Player.DefaultRate,
		NewElement: func() playback.Element {
			return playback.NewClockElement(playback.SystemClock{}, r.httpClient)
		},
		Logger: shared.WithLogger(r.logger, "component", "player"),
	})
}

// idArg reads a positive integer argument.
func idArg(cmd *cli.Command, name string) (int, error) {
	raw := strings.TrimSpace(cmd.StringArg(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// memoryKV keeps playback positions for the life of the process when no database is open.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV { return &memoryKV{data: make(map[string]string)} }

func (m *memoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// userFacing carries the message a user should see while keeping the cause for errors.Is.
type userFacing struct {
	msg string
	err error
}

func (u *userFacing) Error() string { return u.msg }
func (u *userFacing) Unwrap() error { return u.err }

// describe wraps err with [shared.UserMessage], using fallback when the cause has nothing to show and
// the error text when there is no fallback.
func describe(err error, fallback string) error {
	if err == nil {
		return nil
	}
	msg := shared.UserMessage(err, fallback)
	if msg == "" {
		msg = err.Error()
	}
	return &userFacing{msg: msg, err: err}
}
