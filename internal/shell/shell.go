// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package shell

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/app"
	"github.com/flagdeck/flagdeck/internal/notify"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

// CodeUsage marks a command typed with the wrong arguments.
const CodeUsage = "SHELL_USAGE"

// settleTimeout bounds how long quitting waits for in-flight loads to render.
const settleTimeout = 2 * time.Second

const helpText = `Commands:
  help                          show this help
  view <name>                   show auth, challenges, scoreboard or admin
  auth | challenges | scoreboard | admin
  mode login|register           switch the auth form
  login [username] [password]   authenticate (prompts for what is missing)
  register [username] [password]
  logout                        end the session
  whoami                        show the current operator
  submit <id> <flag>            submit a flag, "quote" flags that contain spaces
  filter [glob]                 filter challenges by category, no glob clears
  refresh                       reload the current view
  form [key=value ...]          edit the create form (title, description, points, category, flag)
  create [key=value ...]        create a challenge from the form
  delete <id>                   delete a challenge
  quit                          leave the shell
`

// Notifications is the notification feed the shell prints.
type Notifications interface {
	Subscribe() <-chan notify.Event
	Unsubscribe(ch <-chan notify.Event)
}

// Shell is an interactive session bound to one coordinator.
type Shell struct {
	app    *app.App
	notes  Notifications
	in     *Input
	out    *Printer
	logger *slog.Logger
	id     ulid.ULID

	live     atomic.Bool
	quitting bool
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the shell logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = l
	}
}

// New binds a shell to a. The shell renders every view change and screen
// update while Run is active.
func New(a *app.App, notes Notifications, in *Input, out *Printer, opts ...Option) (*Shell, error) {
	switch {
	case a == nil:
		return nil, oops.Code("SHELL_INVALID").Errorf("app is required")
	case notes == nil:
		return nil, oops.Code("SHELL_INVALID").Errorf("notifications are required")
	case in == nil || out == nil:
		return nil, oops.Code("SHELL_INVALID").Errorf("input and printer are required")
	}

	s := &Shell{
		app:    a,
		notes:  notes,
		in:     in,
		out:    out,
		logger: slog.New(slog.DiscardHandler),
		id:     ulid.Make(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("shell_id", s.id.String())

	a.Views().OnChange(s.viewChanged)
	a.Screen().OnUpdate(s.screenUpdated)
	return s, nil
}

// ID identifies this shell in logs.
func (s *Shell) ID() ulid.ULID {
	return s.id
}

// Run bootstraps the session and processes commands until quit, end of
// input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	events := s.notes.Subscribe()
	var printing sync.WaitGroup
	printing.Add(1)
	go func() {
		defer printing.Done()
		for event := range events {
			if event.Type == notify.EventShown {
				s.out.Print(FormatNotification(event.Notification))
			}
		}
	}()
	defer func() {
		s.settle(ctx)
		s.live.Store(false)
		s.notes.Unsubscribe(events)
		printing.Wait()
		s.in.Close()
		s.logger.Debug("shell closed")
	}()

	s.live.Store(true)
	s.logger.Debug("shell started")
	s.out.Print("flagdeck shell. Type 'help' for commands.\n")

	if err := s.app.Bootstrap(ctx); err != nil {
		s.logger.DebugContext(ctx, "bootstrap ended without a session", "error", err)
	}

	for !s.quitting {
		s.out.Print(s.prompt())
		line, err := s.in.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return oops.Code("SHELL_READ").Wrapf(err, "reading command")
		}
		s.Exec(ctx, line)
	}
	return nil
}

// settle waits briefly for in-flight loads so their results are rendered.
func (s *Shell) settle(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.app.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(settleTimeout):
		s.logger.Debug("quitting with loads in flight")
	}
}

func (s *Shell) prompt() string {
	current := s.app.Views().Current()
	if current == view.Auth {
		return "flagdeck:auth(" + string(s.app.Screen().Auth().Mode) + ")> "
	}
	return "flagdeck:" + string(current) + "> "
}

func (s *Shell) viewChanged(v view.View) {
	if !s.live.Load() {
		return
	}
	s.out.Print(FormatNav(v, s.app.Views().Chrome()))
	if v == view.Auth {
		s.out.Print(FormatAuth(s.app.Screen().Auth()))
	}
}

func (s *Shell) screenUpdated(v view.View) {
	if !s.live.Load() || v != s.app.Views().Current() {
		return
	}
	s.out.Print(s.render(v))
}

func (s *Shell) render(v view.View) string {
	screen := s.app.Screen()
	switch v {
	case view.Challenges:
		text := FormatChallenges(screen.VisibleChallenges())
		if f := screen.Filter(); f.Active() {
			text = "filter: " + f.Pattern() + "\n" + text
		}
		return text
	case view.Scoreboard:
		return FormatScoreboard(screen.Scoreboard())
	case view.Admin:
		return FormatAdmin(screen.Admin())
	default:
		return FormatAuth(screen.Auth())
	}
}

// Exec runs one command line.
func (s *Shell) Exec(ctx context.Context, input string) {
	line, err := ParseLine(input)
	if err != nil {
		s.fail(err)
		return
	}
	if line == nil {
		return
	}
	s.logger.DebugContext(ctx, "command", "verb", line.Verb, "args", len(line.Args))

	switch line.Verb {
	case "help", "?":
		s.out.Print(helpText)
	case "view":
		s.handleView(ctx, line)
	case string(view.Auth), string(view.Challenges), string(view.Scoreboard), string(view.Admin):
		s.show(ctx, view.View(line.Verb))
	case "mode":
		s.handleMode(line)
	case "login":
		s.handleLogin(ctx, line)
	case "register":
		s.handleRegister(ctx, line)
	case "logout":
		s.app.Logout(ctx)
	case "whoami":
		s.handleWhoami()
	case "submit":
		s.handleSubmit(ctx, line)
	case "filter":
		s.handleFilter(line)
	case "refresh":
		s.show(ctx, s.app.Views().Current())
	case "form":
		s.handleForm(line)
	case "create":
		s.handleCreate(ctx, line)
	case "delete":
		s.handleDelete(ctx, line)
	case "quit", "exit":
		s.quitting = true
	default:
		s.out.Printf("Unknown command: %s. Type 'help'.\n", line.Verb)
	}
}

// fail prints a local error. Coordinator operations notify on their own and
// never come through here.
func (s *Shell) fail(err error) {
	errutil.LogWarn(s.logger, "shell command failed", err)
	var msg string
	if oopsErr, ok := oops.AsOops(err); ok && (oopsErr.Code() == CodeUsage || oopsErr.Code() == CodeParse) {
		msg = oopsErr.Error()
	} else {
		msg = app.UserMessage(err)
	}
	s.out.Print("[!] " + msg + "\n")
}

func usage(format string) error {
	return oops.Code(CodeUsage).Errorf("usage: %s", format)
}

func (s *Shell) handleView(ctx context.Context, line *Line) {
	if len(line.Args) != 1 {
		s.fail(usage("view <auth|challenges|scoreboard|admin>"))
		return
	}
	v, err := view.Parse(line.Args[0].Text())
	if err != nil {
		s.fail(err)
		return
	}
	s.show(ctx, v)
}

func (s *Shell) show(ctx context.Context, v view.View) {
	if v == view.Admin && !s.app.Views().Chrome().AdminEntry && s.app.Views().Chrome().Navigation {
		s.out.Print("[!] The admin console is only available to admins.\n")
		return
	}
	if err := s.app.Navigate(ctx, v); err != nil {
		s.fail(err)
	}
}

func (s *Shell) handleMode(line *Line) {
	if len(line.Args) != 1 {
		s.fail(usage("mode login|register"))
		return
	}
	switch m := view.AuthMode(strings.ToLower(line.Args[0].Text())); m {
	case view.ModeLogin, view.ModeRegister:
		s.app.SetAuthMode(m)
	default:
		s.fail(usage("mode login|register"))
	}
}

// credentials takes the username and password from args, prompting for
// whatever is missing.
func (s *Shell) credentials(ctx context.Context, line *Line) (api.Credentials, error) {
	args := line.Positional()
	if len(args) > 2 {
		return api.Credentials{}, usage(line.Verb + " [username] [password]")
	}
	var creds api.Credentials
	var err error
	if len(args) > 0 {
		creds.Username = args[0]
	} else if creds.Username, err = s.in.Prompt(ctx, "Username: "); err != nil {
		return api.Credentials{}, err
	}
	if len(args) > 1 {
		creds.Password = args[1]
	} else if creds.Password, err = s.in.Password(ctx, "Password: "); err != nil {
		return api.Credentials{}, err
	}
	if creds.Username == "" || creds.Password == "" {
		return api.Credentials{}, usage(line.Verb + " [username] [password]")
	}
	return creds, nil
}

func (s *Shell) setMode(m view.AuthMode) {
	if s.app.Screen().Auth().Mode != m {
		s.app.SetAuthMode(m)
	}
}

func (s *Shell) handleLogin(ctx context.Context, line *Line) {
	s.setMode(view.ModeLogin)
	creds, err := s.credentials(ctx, line)
	if err != nil {
		s.fail(err)
		return
	}
	_ = s.app.Login(ctx, creds.Username, creds.Password)
}

func (s *Shell) handleRegister(ctx context.Context, line *Line) {
	s.setMode(view.ModeRegister)
	creds, err := s.credentials(ctx, line)
	if err != nil {
		s.fail(err)
		return
	}
	_ = s.app.Register(ctx, creds)
}

func (s *Shell) handleWhoami() {
	snap := s.app.Session()
	if snap.User == nil {
		s.out.Print("Not logged in.\n")
		return
	}
	s.out.Print(FormatUser(*snap.User))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, oops.Code(CodeUsage).With("id", raw).Errorf("invalid challenge id %q", raw)
	}
	return id, nil
}

func (s *Shell) handleSubmit(ctx context.Context, line *Line) {
	args := line.Positional()
	if len(args) != 2 {
		s.fail(usage(`submit <id> <flag>, quote flags with spaces: submit 3 "flag{a b}"`))
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		s.fail(err)
		return
	}
	_, _ = s.app.Challenges.Submit(ctx, id, args[1])
}

func (s *Shell) handleFilter(line *Line) {
	pattern := strings.Join(line.Positional(), " ")
	f, err := view.NewCategoryFilter(pattern)
	if err != nil {
		s.fail(err)
		return
	}
	s.app.Screen().SetFilter(f)
}

// applyForm copies key=value arguments onto the screen's form.
func (s *Shell) applyForm(line *Line) error {
	form := s.app.Screen().Form()
	for _, a := range line.Args {
		if a.Key == "" {
			return usage(line.Verb + " [key=value ...]")
		}
		if err := form.Set(a.Key, a.Value); err != nil {
			return err
		}
	}
	s.app.Screen().SetForm(form)
	return nil
}

func (s *Shell) handleForm(line *Line) {
	if err := s.applyForm(line); err != nil {
		s.fail(err)
		return
	}
	s.out.Print(FormatForm(s.app.Screen().Form()))
}

func (s *Shell) handleCreate(ctx context.Context, line *Line) {
	if err := s.applyForm(line); err != nil {
		s.fail(err)
		return
	}
	_, _ = s.app.Admin.CreateFromForm(ctx)
}

func (s *Shell) handleDelete(ctx context.Context, line *Line) {
	if len(line.Args) != 1 {
		s.fail(usage("delete <id>"))
		return
	}
	id, err := parseID(line.Args[0].Text())
	if err != nil {
		s.fail(err)
		return
	}
	if err := s.app.Admin.Delete(ctx, id); err != nil {
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == app.CodeDeclined {
			s.out.Print("Cancelled.\n")
		}
	}
}
