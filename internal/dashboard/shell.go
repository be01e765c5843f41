package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"zarab-collections/internal/catalog"
	"zarab-collections/internal/domain"
	"zarab-collections/internal/form"
	"zarab-collections/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrUnknownTab  = errors.New("unknown tab")
	ErrShellClosed = errors.New("dashboard session has ended")
)

// Tab is one of the two dashboard panes
type Tab string

const (
	TabProducts Tab = "products"
	TabAdd      Tab = "add"
)

// ParseTab validates a tab name
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case TabProducts, TabAdd:
		return Tab(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// Session is the signed-in context handed to the shell at open time
type Session interface {
	ID() string
	User() domain.Identity
	SignOut(ctx context.Context) error
}

// Repository is everything the dashboard reads and writes
type Repository interface {
	catalog.Repository
	form.Store
}

// TabInfo describes one tab header
type TabInfo struct {
	ID     Tab    `json:"id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// State is the rendered shell chrome
type State struct {
	Welcome string    `json:"welcome"`
	Email   string    `json:"email"`
	Tab     Tab       `json:"tab"`
	Tabs    []TabInfo `json:"tabs"`
}

// Shell composes the admin product list and the product form for one session
type Shell struct {
	mu      sync.Mutex
	session Session
	view    *catalog.View
	form    *form.Controller
	logger  *zap.Logger
	tab     Tab
	closed  bool
}

// NewShell wires a list and a form over repo. A successful save re-fetches
// the list.
func NewShell(session Session, repo Repository, logger *zap.Logger) *Shell {
	logger = logger.With(zap.String("session_id", session.ID()))
	view := catalog.NewAdminView(repo, logger)

	s := &Shell{
		session: session,
		view:    view,
		logger:  logger,
		tab:     TabProducts,
	}
	s.form = form.NewController(repo, logger, func(ctx context.Context) {
		// Load logs its own failure; the list then renders empty with the error
		_ = view.Load(ctx)
	})
	return s
}

// Open performs the initial fetch of the product list
func (s *Shell) Open(ctx context.Context) error {
	return s.view.Load(ctx)
}

// View returns the admin product list
func (s *Shell) View() *catalog.View { return s.view }

// Form returns the product form
func (s *Shell) Form() *form.Controller { return s.form }

// Session returns the context the shell was opened with
func (s *Shell) Session() Session { return s.session }

// Tab returns the active tab
func (s *Shell) Tab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// SetTab switches panes. Leaving the form discards its draft, so it fails
// while a submission is outstanding.
func (s *Shell) SetTab(tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrShellClosed
	}

	if tab == TabProducts {
		if err := s.form.Reset(); err != nil {
			return err
		}
	}
	s.tab = tab
	return nil
}

// Edit loads a listed product into the form and shows it
func (s *Shell) Edit(id int64) error {
	product, ok := s.view.Find(id)
	if !ok {
		return repository.ErrProductNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrShellClosed
	}

	if err := s.form.Load(&product); err != nil {
		return err
	}
	s.tab = TabAdd
	return nil
}

// Cancel abandons the draft and returns to the list. An outstanding
// submission cannot be cancelled.
func (s *Shell) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.form.Reset(); err != nil {
		return err
	}
	s.tab = TabProducts
	return nil
}

// Logout ends the backend session. The shell is unusable afterwards.
func (s *Shell) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.session.SignOut(ctx); err != nil {
		s.logger.Error("Sign out failed", zap.Error(err))
		s.mu.Lock()
		s.closed = false
		s.mu.Unlock()
		return err
	}

	s.logger.Info("Signed out")
	return nil
}

// Closed reports whether Logout has run
func (s *Shell) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// State renders the header and tab bar
func (s *Shell) State() State {
	s.mu.Lock()
	tab := s.tab
	s.mu.Unlock()

	addLabel := "Add Product"
	if s.form.Editing() {
		addLabel = "Edit Product"
	}

	email := s.session.User().Email()
	return State{
		Welcome: "Welcome, " + email,
		Email:   email,
		Tab:     tab,
		Tabs: []TabInfo{
			{ID: TabProducts, Label: "Products", Active: tab == TabProducts},
			{ID: TabAdd, Label: addLabel, Active: tab == TabAdd},
		},
	}
}
