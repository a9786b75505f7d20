// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package boxelsurvey walks the commander through an evenly spaced
// sample of the systems in a boxel, skipping systems EDSM already knows.
package boxelsurvey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stellar-survey/edsst/lib/clipboard"
	"github.com/stellar-survey/edsst/lib/edsm"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/subscriber"
)

const (
	Name    = "BoxelSurvey"
	Version = "0.1.0"

	// LogFilename is the file, in the module's data directory, that
	// receives one line per surveyed system.
	LogFilename = "boxel_log"
)

// Aliases route console commands to the survey.
var Aliases = []string{"boxel", "boxels"}

const usage = "survey <count|all> of <systems in boxel> in <boxel name>"

// SystemLookup reports which of the named systems are already known.
// *edsm.Client implements it.
type SystemLookup interface {
	Systems(ctx context.Context, names []string) ([]edsm.System, error)
}

// State is the persisted survey.
type State struct {
	// Queue holds the systems after Next, in visiting order.
	Queue []string `cbor:"queue"`
	// Known holds the lowercased names of queued systems already
	// visited by others.
	Known    map[string]bool `cbor:"known"`
	ToSurvey int             `cbor:"to_survey"`
	InBoxel  int             `cbor:"in_boxel"`
	Boxel    string          `cbor:"boxel"`
	Next     string          `cbor:"next"`
	Ongoing  bool            `cbor:"ongoing"`
}

// Options configures the survey beyond the shared subscriber options.
type Options struct {
	Lookup SystemLookup
	Copier clipboard.Copier

	// LogPath overrides the survey log location. Defaults to
	// LogFilename in the store's directory for the module.
	LogPath string

	// ListKnown makes status print the skipped systems.
	ListKnown bool
}

// Module is the boxel survey subscriber.
type Module struct {
	*subscriber.Base

	state     *State
	lookup    SystemLookup
	copier    clipboard.Copier
	logPath   string
	listKnown bool

	// lookingUp is set while a survey waits for its lookup task.
	lookingUp bool
}

// New returns the survey module.
func New(base subscriber.Options, options Options) (*Module, error) {
	if options.Copier == nil {
		options.Copier = clipboard.New(nil)
	}
	if options.LogPath == "" && base.Store != nil {
		options.LogPath = filepath.Join(base.Store.Directory(Name), LogFilename)
	}

	state := &State{}
	base.Name = Name
	base.Version = Version
	base.Aliases = Aliases
	base.State = state
	b, err := subscriber.NewBase(base)
	if err != nil {
		return nil, err
	}
	return &Module{
		Base:      b,
		state:     state,
		lookup:    options.Lookup,
		copier:    options.Copier,
		logPath:   options.LogPath,
		listKnown: options.ListKnown,
	}, nil
}

// Survey returns a copy of the current survey state.
func (m *Module) Survey() State {
	survey := *m.state
	survey.Queue = append([]string(nil), m.state.Queue...)
	return survey
}

func (m *Module) HandleEvent(ctx context.Context, record journal.Record, tasks *subscriber.TaskGroup) error {
	if err := m.Base.HandleEvent(ctx, record, tasks); err != nil {
		return err
	}
	if record.Event != "FSDJump" || !m.CaughtUp() {
		return nil
	}
	system := record.String("StarSystem")
	if !m.state.Ongoing || !strings.EqualFold(system, m.state.Next) {
		return nil
	}
	if err := m.advance(tasks); err != nil {
		return err
	}
	return m.SaveState()
}

func (m *Module) HandleCommand(ctx context.Context, args []string, tasks *subscriber.TaskGroup) error {
	if m.Command(args) {
		return nil
	}
	switch args[1] {
	case "status":
		m.status()
	case "show", "log":
		if !m.state.Ongoing {
			m.Print("no survey ongoing")
			return nil
		}
		m.Print("systems left in queue:\n" + strings.Join(append([]string{m.state.Next}, m.state.Queue...), "\n"))
	case "survey":
		return m.survey(args[2:], tasks)
	case "clear", "finish":
		if !m.state.Ongoing {
			m.Print("no survey ongoing")
			return nil
		}
		m.clear()
		m.Print("survey cleared")
		return m.SaveState()
	default:
		m.Printf("unknown command %q", args[1])
	}
	return nil
}

func (m *Module) status() {
	if !m.state.Ongoing {
		m.Print("no survey ongoing")
		return
	}
	left := 1 + len(m.state.Queue) - len(m.state.Known)
	m.Printf("surveying %s: %d of %d systems left, next is %s", m.state.Boxel, left, m.state.ToSurvey, m.state.Next)
	if m.listKnown && len(m.state.Known) > 0 {
		var known []string
		for _, name := range append([]string{m.state.Next}, m.state.Queue...) {
			if m.state.Known[strings.ToLower(name)] {
				known = append(known, name)
			}
		}
		m.Print("systems visited by others:\n" + strings.Join(known, "\n"))
	}
}

// Plan is a validated survey request.
type Plan struct {
	ToSurvey int
	InBoxel  int
	Boxel    string
}

// ParsePlan parses "<count|all> of <total> in <boxel name...>".
func ParsePlan(args []string) (Plan, error) {
	if len(args) < 5 {
		return Plan{}, errors.New("missing arguments")
	}
	if args[1] != "of" || (args[3] != "in" && args[3] != "from") {
		return Plan{}, errors.New("malformed survey expression")
	}

	var plan Plan
	inBoxel, err := strconv.Atoi(args[2])
	if err != nil {
		return Plan{}, fmt.Errorf("system count in boxel %q is not an integer", args[2])
	}
	plan.InBoxel = inBoxel

	switch args[0] {
	case "all", "a", "full", "complete":
		plan.ToSurvey = inBoxel
	default:
		plan.ToSurvey, err = strconv.Atoi(args[0])
		if err != nil {
			return Plan{}, fmt.Errorf("survey count %q is not an integer", args[0])
		}
	}
	if plan.ToSurvey < 1 {
		return Plan{}, errors.New("need to survey at least one system")
	}
	if plan.InBoxel < plan.ToSurvey {
		return Plan{}, errors.New("cannot survey more systems than the boxel holds")
	}
	plan.Boxel = strings.Join(args[4:], " ")
	return plan, nil
}

// Systems returns the evenly spaced system names of the plan. Boxel
// systems are numbered from 0; a single-system survey visits number 0.
func (p Plan) Systems() []string {
	names := make([]string, p.ToSurvey)
	for i := range names {
		number := 0
		if p.ToSurvey > 1 {
			number = i * (p.InBoxel - 1) / (p.ToSurvey - 1)
		}
		names[i] = p.Boxel + strconv.Itoa(number)
	}
	return names
}

func (m *Module) survey(args []string, tasks *subscriber.TaskGroup) error {
	if m.state.Ongoing || m.lookingUp {
		m.Print("survey already ongoing")
		return nil
	}
	plan, err := ParsePlan(args)
	if err != nil {
		m.Printf("%v, expected: %s", err, usage)
		return nil
	}

	names := plan.Systems()
	m.lookingUp = true
	tasks.Go("boxelsurvey/lookup", func(ctx context.Context) error {
		known, lookupErr := m.lookupKnown(ctx, names)
		var startErr error
		tasks.Exclusive(func() {
			m.lookingUp = false
			if lookupErr != nil {
				m.Printf("could not check EDSM for visited systems: %v", lookupErr)
			}
			startErr = m.start(plan, names, known, tasks)
		})
		return startErr
	})
	return nil
}

func (m *Module) lookupKnown(ctx context.Context, names []string) (map[string]bool, error) {
	known := make(map[string]bool)
	if m.lookup == nil {
		return known, nil
	}
	systems, err := m.lookup.Systems(ctx, names)
	if err != nil {
		return known, err
	}
	for _, system := range systems {
		known[strings.ToLower(system.Name)] = true
	}
	return known, nil
}

func (m *Module) start(plan Plan, names []string, known map[string]bool, tasks *subscriber.TaskGroup) error {
	m.state.ToSurvey = plan.ToSurvey
	m.state.InBoxel = plan.InBoxel
	m.state.Boxel = plan.Boxel
	m.state.Known = known
	m.state.Next = names[0]
	m.state.Queue = names[1:]
	m.state.Ongoing = true
	m.Printf("surveying %d of %d systems in %s", plan.ToSurvey, plan.InBoxel, plan.Boxel)

	if m.state.Known[strings.ToLower(m.state.Next)] {
		if err := m.advance(tasks); err != nil {
			return err
		}
	} else {
		m.announce(tasks)
	}
	return m.SaveState()
}

// advance logs the current target as done and moves to the next system
// nobody has visited. It completes the survey when the queue runs out.
func (m *Module) advance(tasks *subscriber.TaskGroup) error {
	if err := m.appendLog(m.state.Next); err != nil {
		return err
	}
	delete(m.state.Known, strings.ToLower(m.state.Next))

	for len(m.state.Queue) > 0 {
		m.state.Next = m.state.Queue[0]
		m.state.Queue = m.state.Queue[1:]
		if !m.state.Known[strings.ToLower(m.state.Next)] {
			m.announce(tasks)
			return nil
		}
		m.Printf("system %s has already been visited, skipping", m.state.Next)
		if err := m.appendLog(m.state.Next); err != nil {
			return err
		}
		delete(m.state.Known, strings.ToLower(m.state.Next))
	}

	m.Print("survey completed")
	m.clear()
	return nil
}

// announce prints the next target and copies it to the clipboard.
func (m *Module) announce(tasks *subscriber.TaskGroup) {
	next := m.state.Next
	m.Printf("next system: %s", next)
	tasks.Go("boxelsurvey/clipboard", func(ctx context.Context) error {
		err := m.copier.Copy(ctx, next)
		if errors.Is(err, clipboard.ErrDisabled) {
			return nil
		}
		return err
	})
}

func (m *Module) appendLog(system string) error {
	if m.logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.logPath), 0o755); err != nil {
		return fmt.Errorf("creating survey log directory: %w", err)
	}
	file, err := os.OpenFile(m.logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening survey log: %w", err)
	}
	if _, err := fmt.Fprintln(file, system); err != nil {
		file.Close()
		return fmt.Errorf("writing survey log: %w", err)
	}
	return file.Close()
}

func (m *Module) clear() {
	*m.state = State{}
}
